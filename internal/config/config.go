package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything loaded from config.env and the environment.
type Config struct {
	AppEnv string `mapstructure:"APP_ENV"`
	Port   string `mapstructure:"PORT"`

	DSN       string `mapstructure:"DSN"`
	JWTSecret string `mapstructure:"JWT_SECRET"`

	SupabaseURL         string `mapstructure:"SUPABASE_URL"`
	SupabaseServiceKey  string `mapstructure:"SUPABASE_SERVICE_KEY"`
	SupabaseProofBucket string `mapstructure:"SUPABASE_PROOF_BUCKET"`

	StripeSecretKey      string `mapstructure:"STRIPE_SECRET_KEY"`
	StripePublishableKey string `mapstructure:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret  string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	PayPalClientID     string `mapstructure:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `mapstructure:"PAYPAL_CLIENT_SECRET"`
	PayPalSandbox      bool   `mapstructure:"PAYPAL_SANDBOX"`

	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
}

var defaults = map[string]any{
	"APP_ENV":                "development",
	"PORT":                   "8080",
	"DSN":                    "",
	"JWT_SECRET":             "",
	"SUPABASE_URL":           "",
	"SUPABASE_SERVICE_KEY":   "",
	"SUPABASE_PROOF_BUCKET":  "payment-proofs",
	"STRIPE_SECRET_KEY":      "",
	"STRIPE_PUBLISHABLE_KEY": "",
	"STRIPE_WEBHOOK_SECRET":  "",
	"PAYPAL_CLIENT_ID":       "",
	"PAYPAL_CLIENT_SECRET":   "",
	"PAYPAL_SANDBOX":         true,
	"CORS_ORIGINS":           "*",
}

// Load reads config.env from path (if present) and overlays environment
// variables. A missing file is fine; serverless hosts only set env vars.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Unmarshal only sees keys viper already knows about.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var config Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, err
		}
	}

	err := v.Unmarshal(&config)
	return config, err
}

// Production reports whether APP_ENV is "production".
func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// StripeEnabled reports whether online card payments can be taken.
func (c Config) StripeEnabled() bool {
	return c.StripeSecretKey != "" && c.StripePublishableKey != ""
}

// PayPalEnabled reports whether PayPal orders can be verified server side.
func (c Config) PayPalEnabled() bool {
	return c.PayPalClientID != "" && c.PayPalClientSecret != ""
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
