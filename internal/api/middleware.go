package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/metrics"
	"github.com/recshelf/recshelf-server/internal/session"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

const (
	visitorCookie = "recshelf_visitor"
	visitorHeader = "X-Visitor-ID"

	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

type clientInfoKey struct{}

// clientFromContext returns the client details captured for the request.
func clientFromContext(ctx context.Context) auth.ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(auth.ClientInfo)
	return info
}

func clientInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := auth.ClientInfo{
			IPAddress: getClientIP(r),
			UserAgent: r.UserAgent(),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientInfoKey{}, info)))
	})
}

// bearerMiddleware stores the raw bearer token in the context. Whether it
// is valid is decided later by the session oracle.
func bearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok && token != "" {
			r = r.WithContext(session.WithToken(r.Context(), strings.TrimSpace(token)))
		}
		next.ServeHTTP(w, r)
	})
}

// visitorMiddleware attaches the visitor ID. The header wins over the
// cookie. Requests with neither and no bearer token are issued a new
// cookie.
func visitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitorID := strings.TrimSpace(r.Header.Get(visitorHeader))
		if visitorID == "" {
			if c, err := r.Cookie(visitorCookie); err == nil {
				visitorID = c.Value
			}
		}
		if visitorID != "" && !validVisitorID(visitorID) {
			visitorID = ""
		}

		if _, authed := session.TokenFromContext(r.Context()); visitorID == "" && !authed {
			visitorID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     visitorCookie,
				Value:    visitorID,
				Path:     "/",
				MaxAge:   visitorCookieMaxAge,
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}

		if visitorID != "" {
			r = r.WithContext(visitor.WithID(r.Context(), visitorID))
		}
		next.ServeHTTP(w, r)
	})
}

// validVisitorID accepts the UUIDs we issue plus client-generated IDs made
// of URL-safe characters.
func validVisitorID(s string) bool {
	if _, err := uuid.Parse(s); err == nil {
		return true
	}
	if len(s) < 8 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			var route string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			metrics.RecordHTTPRequest(r.Method, route, ww.Status())

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
