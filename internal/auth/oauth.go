package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog/log"
)

type OAuthConfig struct {
	SessionSecret        string
	BaseURL              string
	Secure               bool
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
}

// InitProviders configure gothic et renvoie le nombre de fournisseurs actifs.
func InitProviders(cfg OAuthConfig) int {
	if cfg.SessionSecret == "" {
		log.Warn().Msg("⚠️ SESSION_SECRET manquant, connexion OAuth désactivée")
		return 0
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store
	gothic.GetProviderName = ProviderFromRequest

	base := strings.TrimRight(cfg.BaseURL, "/")
	var providers []goth.Provider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers = append(providers, google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, base+"/api/auth/google/callback", "email", "profile"))
		log.Info().Msg("✅ Google OAuth activé")
	}
	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		providers = append(providers, facebook.New(cfg.FacebookClientID, cfg.FacebookClientSecret, base+"/api/auth/facebook/callback", "email"))
		log.Info().Msg("✅ Facebook OAuth activé")
	}
	if len(providers) == 0 {
		log.Warn().Msg("⚠️ Aucun provider OAuth configuré")
		return 0
	}
	goth.UseProviders(providers...)
	return len(providers)
}

// ProviderFromRequest lit le fournisseur dans la query, où le handler gin
// recopie le paramètre de route.
func ProviderFromRequest(req *http.Request) (string, error) {
	if p := req.URL.Query().Get("provider"); p != "" {
		return p, nil
	}
	return "", errors.New("provider not found")
}
