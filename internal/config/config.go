// Package config loads runtime configuration for the menu critic from the
// environment, with an optional .env file for local development.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultVisionModel = "gemini-2.5-flash"

	// DefaultRequestCooldown is the minimum gap between analyses per session.
	DefaultRequestCooldown = 10 * time.Second

	// DefaultRequestTimeout bounds each model call individually, so an
	// analysis that falls back to the relaxed attempt may take up to twice
	// this long.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxTextChars is the cap applied to pasted menu text before it
	// is sent to the model. Longer input is truncated, not rejected.
	DefaultMaxTextChars = 12000

	// DefaultMaxImageUploadBytes is the hard ceiling on an uploaded image.
	DefaultMaxImageUploadBytes = 8 << 20

	// DefaultTargetImageBytes is the re-encode target for oversized images.
	DefaultTargetImageBytes = 3_500_000

	// DefaultMaxImageDimension bounds the longest image edge after downscaling.
	DefaultMaxImageDimension = 1600
)

// ErrMissingAPIKey indicates GEMINI_API_KEY is unset or empty.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// Config holds everything the pipeline and binaries need at runtime.
type Config struct {
	APIKey      string
	TextModel   string
	VisionModel string

	RequestCooldown time.Duration
	RequestTimeout  time.Duration

	MaxTextChars        int
	MaxImageUploadBytes int64
	TargetImageBytes    int
	MaxImageDimension   int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win over
// .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := &Config{
		APIKey:              apiKey,
		TextModel:           envString("MENU_CRITIC_TEXT_MODEL", DefaultTextModel),
		VisionModel:         envString("MENU_CRITIC_VISION_MODEL", DefaultVisionModel),
		RequestCooldown:     envDuration("MENU_CRITIC_COOLDOWN", DefaultRequestCooldown),
		RequestTimeout:      envDuration("MENU_CRITIC_TIMEOUT", DefaultRequestTimeout),
		MaxTextChars:        envInt("MENU_CRITIC_MAX_TEXT_CHARS", DefaultMaxTextChars),
		MaxImageUploadBytes: int64(envInt("MENU_CRITIC_MAX_IMAGE_BYTES", DefaultMaxImageUploadBytes)),
		TargetImageBytes:    envInt("MENU_CRITIC_TARGET_IMAGE_BYTES", DefaultTargetImageBytes),
		MaxImageDimension:   envInt("MENU_CRITIC_MAX_IMAGE_DIMENSION", DefaultMaxImageDimension),
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("var", key).Str("value", v).Msg("Ignoring invalid integer env var")
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("var", key).Str("value", v).Msg("Ignoring invalid duration env var")
		return fallback
	}
	return d
}
