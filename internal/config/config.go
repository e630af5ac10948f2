package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/RommanNadeem/avatar-meet/internal/domain"
)

// Config carries everything the token issuer and dispatch coordinator need.
// It is constructed and validated once at startup; handlers only consume it.
type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	// Media room credentials and endpoint.
	APIKey    string `mapstructure:"livekit_api_key"`
	APISecret string `mapstructure:"livekit_api_secret"`
	ServerURL string `mapstructure:"livekit_url"`

	// Regions maps an UPPERCASED region name to its endpoint override.
	// Entries not present here fall back to LIVEKIT_URL_<REGION> env keys.
	Regions map[string]string `mapstructure:"regions"`

	// AgentName is the default agent dispatched into a room when the
	// request does not name one.
	AgentName string `mapstructure:"agent_name"`

	// CookieSecret signs the participant-suffix cookie.
	CookieSecret string `mapstructure:"cookie_secret"`

	// DispatchTimeout bounds each dispatch-registry call.
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`

	readyOnce sync.Once
	readyErr  error
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("agent_name", "avatar-agent")
	v.SetDefault("dispatch_timeout", "10s")

	v.AutomaticEnv()
	// Env names are the same keys uppercased: LIVEKIT_API_KEY, LIVEKIT_URL...
	for _, key := range []string{
		"mode", "port",
		"livekit_api_key", "livekit_api_secret", "livekit_url",
		"agent_name", "cookie_secret", "dispatch_timeout",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("module", "config").Str("file", fileName).Msg("config file not found, using env and defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.CookieSecret == "" {
		// An ephemeral secret keeps dev setups working; suffix cookies
		// just won't survive a server restart.
		cfg.CookieSecret = domain.NewSuffix() + domain.NewSuffix() + domain.NewSuffix()
		log.Warn().Str("module", "config").Msg("COOKIE_SECRET not set, using an ephemeral secret")
	}
	return &cfg, nil
}

// Ready reports whether the media-server configuration is usable. The check
// runs once; every caller after that gets the memoized verdict. Order
// matters: endpoint, then key, then secret, so the operator fixes one thing
// at a time.
func (c *Config) Ready() error {
	c.readyOnce.Do(func() {
		c.readyErr = c.validate()
	})
	return c.readyErr
}

func (c *Config) validate() error {
	if !domain.ValidServerURL(c.ServerURL) {
		return &domain.ConfigError{
			Field: "LIVEKIT_URL",
			Hint:  "Set a valid LIVEKIT_URL in your environment variables; the current value is missing or looks like a placeholder.",
		}
	}
	if domain.IsPlaceholder(c.APIKey) {
		return &domain.ConfigError{
			Field: "LIVEKIT_API_KEY",
			Hint:  "Set LIVEKIT_API_KEY in your environment variables.",
		}
	}
	if domain.IsPlaceholder(c.APISecret) {
		return &domain.ConfigError{
			Field: "LIVEKIT_API_SECRET",
			Hint:  "Set LIVEKIT_API_SECRET in your environment variables.",
		}
	}
	return nil
}

// EndpointForRegion resolves the media endpoint for an optional region. An
// empty region yields the default endpoint; a region whose key is absent is
// its own misconfiguration, distinct from a missing default endpoint.
func (c *Config) EndpointForRegion(region string) (string, error) {
	if region == "" {
		return c.ServerURL, nil
	}
	key := strings.ToUpper("LIVEKIT_URL_" + region)
	url := c.Regions[strings.ToUpper(region)]
	if url == "" {
		url = os.Getenv(key)
	}
	if !domain.ValidServerURL(url) {
		return "", &domain.ConfigError{
			Field: key,
			Hint:  fmt.Sprintf("No endpoint configured for region %q; set %s in your environment variables.", region, key),
		}
	}
	return url, nil
}
