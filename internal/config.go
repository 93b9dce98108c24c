package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080"`
	LogLevel        string        `env:"LOG_LEVEL,required=true"`
	SeedFilepath    string        `env:"SEED_FILEPATH,required=true"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,required=true"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,required=true"`
	IdleThreshold   time.Duration `env:"IDLE_THRESHOLD,required=true"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,required=true"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
