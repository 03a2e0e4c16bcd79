// Package config reads process configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/JosticeMan/RPlace/internal/validate"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Defaults.
const (
	DefaultLogLevel       = "info"
	DefaultCooldown       = 5000 * time.Millisecond
	DefaultRedisKey       = "board"
	DefaultClientCooldown = 0
)

// Env is the environment driven configuration shared by all commands.
type Env struct {
	LogLevel string `validate:"oneof=trace debug info warn error"`

	// Cooldown is the minimum interval between two admitted connections from
	// the same source host. Zero disables the check.
	Cooldown      time.Duration `validate:"gte=0"`
	AllowedOrigin string

	RedisAddress  string `validate:"omitempty,hostname_port"`
	RedisPassword string
	RedisDB       int    `validate:"gte=0"`
	RedisKey      string `validate:"required"`

	// ClientCooldown is the advisory delay a client leaves between its own
	// tile changes.
	ClientCooldown time.Duration `validate:"gte=0"`
}

// Load reads the given .env files (".env" when none are given) into the
// process environment and then builds an Env from it. Missing files are not
// an error.
func Load(files ...string) (Env, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Env{}, errors.Wrap(err, "load .env failed")
		}
		logger.Debug("no .env file found, using process environment")
	}
	return FromEnviron()
}

// FromEnviron builds an Env from the current process environment.
func FromEnviron() (Env, error) {
	env := Env{
		LogLevel:       lookup("LOG_LEVEL", DefaultLogLevel),
		AllowedOrigin:  os.Getenv("ALLOWED_ORIGIN"),
		RedisAddress:   os.Getenv("REDIS_ADDRESS"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisKey:       lookup("REDIS_KEY", DefaultRedisKey),
		Cooldown:       DefaultCooldown,
		ClientCooldown: DefaultClientCooldown,
	}

	var err error
	if raw, ok := os.LookupEnv("RATE_LIMIT_COOLDOWN"); ok {
		if env.Cooldown, err = time.ParseDuration(raw); err != nil {
			return Env{}, errors.Wrap(err, "parse RATE_LIMIT_COOLDOWN failed")
		}
	}
	if raw, ok := os.LookupEnv("CLIENT_COOLDOWN"); ok {
		if env.ClientCooldown, err = time.ParseDuration(raw); err != nil {
			return Env{}, errors.Wrap(err, "parse CLIENT_COOLDOWN failed")
		}
	}
	if raw, ok := os.LookupEnv("REDIS_DB"); ok {
		if env.RedisDB, err = strconv.Atoi(raw); err != nil {
			return Env{}, errors.Wrap(err, "parse REDIS_DB failed")
		}
	}

	if err := validate.Validate().Struct(env); err != nil {
		return Env{}, errors.Wrap(err, "validate env failed")
	}
	return env, nil
}

func lookup(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
