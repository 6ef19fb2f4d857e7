// Package color derives stable display colors for categories that were
// created without one.
package color

import "fmt"

// ForKey returns a hex color for key. The same key always gets the same
// color; hue varies with the key while saturation and lightness are fixed
// so every result reads well on light and dark backgrounds.
func ForKey(key string) string {
	h := 0
	for _, c := range key {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}

	r, g, b := hslToRGB(float64(h%360), 0.45, 0.6)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// hslToRGB takes h in [0,360) and s, l in [0,1].
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = uint8(hueToRGB(p, q, h+1.0/3.0) * 255)
	g = uint8(hueToRGB(p, q, h) * 255)
	b = uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
	return r, g, b
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
