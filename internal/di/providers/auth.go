package providers

import (
	"github.com/samber/do/v2"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/config"
	"github.com/recshelf/recshelf-server/internal/logger"
	"github.com/recshelf/recshelf-server/internal/service"
	"github.com/recshelf/recshelf-server/internal/session"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Auth.KeyDir)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"refresh_token_duration", cfg.Auth.RefreshTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
}

// ProvideTokenVerifier provides the access token verifier shared by the
// session oracle and AuthService.
func ProvideTokenVerifier(i do.Injector) (*service.TokenVerifier, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	return service.NewTokenVerifier(storeHandle.Database, tokens), nil
}

// ProvideOracle provides the session oracle.
func ProvideOracle(i do.Injector) (*session.Oracle, error) {
	verifier := do.MustInvoke[*service.TokenVerifier](i)
	log := do.MustInvoke[*logger.Logger](i)
	return session.NewOracle(verifier, log.Component("session")), nil
}

// NotifierHandle wraps the session event stream with Shutdownable.
type NotifierHandle struct {
	*session.Notifier
}

// Shutdown implements do.Shutdownable.
func (h *NotifierHandle) Shutdown() error {
	return h.Close()
}

// ProvideNotifier provides the session-change event stream.
func ProvideNotifier(i do.Injector) (*NotifierHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &NotifierHandle{Notifier: session.NewNotifier(log.Component("events"))}, nil
}
