package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the mailbeacon service.
type Config struct {
	Addr           string        `env:"ADDR,default=:8080"`
	DBDSN          string        `env:"DB_DSN,required"`
	JWTSigningKey  string        `env:"JWT_SIGNING_KEY,required"`
	TokenTTL       time.Duration `env:"TOKEN_TTL,default=1h"`
	OTPTTL         time.Duration `env:"OTP_TTL,default=10m"`
	SMTPHost       string        `env:"SMTP_HOST"`
	SMTPPort       int           `env:"SMTP_PORT,default=587"`
	SMTPUser       string        `env:"SMTP_USER"`
	SMTPPassword   string        `env:"SMTP_PASS"`
	SMTPFrom       string        `env:"SMTP_FROM"`
	NATSURL        string        `env:"NATS_URL"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`

	// TrackCreatorViews disables the creator self-view suppression
	// heuristic so every image fetch is counted, including fetches
	// from the address that created the pixel.
	TrackCreatorViews bool `env:"TRACK_CREATOR_VIEWS,default=false"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
