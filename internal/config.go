package internal

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	apperrors "github.com/targoninc/venel-api/errors"
)

type Config struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8080"`

	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	// Attachment store. FileSecret never leaves the process; the
	// encryption key is derived from it once at startup.
	AttachmentsEnabled bool   `envconfig:"ATTACHMENTS_ENABLED" default:"true"`
	FileFolder         string `envconfig:"FILE_FOLDER"`
	FileSecret         string `envconfig:"FILE_SECRET"`

	// Live gateway.
	MaxPayloadSize       int64         `envconfig:"MAX_PAYLOAD_SIZE" default:"10000000"`
	ConnectionBufferSize int           `envconfig:"CONNECTION_BUFFER_SIZE" default:"256"`
	BindingTokenTTL      time.Duration `envconfig:"BINDING_TOKEN_TTL" default:"30s"`

	AuthTokenDuration time.Duration `envconfig:"AUTH_TOKEN_DURATION" default:"24h"`
	JwtSecret         string        `envconfig:"JWT_SECRET" required:"true"`

	// Avatar bounds enforced before persisting an updateAvatar command.
	AvatarMaxBytes int `envconfig:"AVATAR_MAX_BYTES" default:"5000000"`
	AvatarMaxDim   int `envconfig:"AVATAR_MAX_DIM" default:"256"`
	AvatarQuality  int `envconfig:"AVATAR_QUALITY" default:"80"`

	LimitMessages *int `envconfig:"LIMIT_MESSAGES"`
}

// Load reads the configuration from the environment and applies the
// fail-fast startup rules: attachments without a secret or a storage
// root are a configuration error, never a per-request one.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.AttachmentsEnabled {
		if cfg.FileSecret == "" {
			return Config{}, apperrors.ErrMissingFileSecret
		}
		if cfg.FileFolder == "" {
			return Config{}, apperrors.ErrMissingFileFolder
		}
	}
	return cfg, nil
}
