package http

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/RommanNadeem/avatar-meet/internal/config"
	"github.com/RommanNadeem/avatar-meet/internal/dispatch"
	"github.com/RommanNadeem/avatar-meet/internal/token"
)

// suffixCookieName names both the session cookie and the key the suffix is
// stored under inside it.
const suffixCookieName = "random-participant-postfix"

// suffixCookieMaxAge is the suffix cookie lifetime in seconds (2 hours).
const suffixCookieMaxAge = 2 * 60 * 60

func SetupRouter(cfg *config.Config, issuer *token.Issuer, coord *dispatch.Coordinator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.CookieSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   suffixCookieMaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	r.Use(sessions.Sessions(suffixCookieName, store))

	h := &Handlers{Issuer: issuer, Coordinator: coord}

	api := r.Group("/api")
	api.GET("/connection-details", h.ConnectionDetails)
	api.POST("/request-agent", h.RequestAgent)
	api.DELETE("/agent", h.StopAgent)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
