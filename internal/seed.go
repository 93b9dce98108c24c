package internal

import (
	"fmt"
	"os"

	"chat-hub/auth"

	"gopkg.in/yaml.v3"
)

// SeedAccount is one username/password pair from the seed file. The
// plain password lives only in the file; it is hashed during startup
// seeding and never stored.
type SeedAccount struct {
	Username string `yaml:"username" validate:"required,chatname"`
	Password string `yaml:"password" validate:"required"`
}

// SeedChannel describes one startup channel. An empty password means
// the channel is public. Admins and banned usernames need not be
// seeded accounts.
type SeedChannel struct {
	Name     string   `yaml:"name" validate:"required"`
	Password string   `yaml:"password"`
	Topic    string   `yaml:"topic"`
	Admins   []string `yaml:"admins"`
	Banned   []string `yaml:"banned"`
}

// SeedFile is the full startup fixture: the account directory, the
// channel directory and the moderation word list.
type SeedFile struct {
	Accounts      []SeedAccount `yaml:"accounts" validate:"required,min=1,dive"`
	Channels      []SeedChannel `yaml:"channels" validate:"required,min=1,dive"`
	CensoredWords []string      `yaml:"censored_words"`
}

// LoadSeed reads and validates the seed file. Startup fails on any
// malformed entry; a half-seeded directory is worse than no process.
func LoadSeed(path string) (SeedFile, error) {
	var seed SeedFile

	data, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed file: %w", err)
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("parse seed file %q: %w", path, err)
	}
	if err := auth.ValidateStruct(seed); err != nil {
		return seed, fmt.Errorf("invalid seed file %q: %w", path, err)
	}

	names := make(map[string]struct{}, len(seed.Channels))
	for _, ch := range seed.Channels {
		if _, dup := names[ch.Name]; dup {
			return seed, fmt.Errorf("invalid seed file %q: duplicate channel %q", path, ch.Name)
		}
		names[ch.Name] = struct{}{}
	}

	usernames := make(map[string]struct{}, len(seed.Accounts))
	for _, acct := range seed.Accounts {
		if _, dup := usernames[acct.Username]; dup {
			return seed, fmt.Errorf("invalid seed file %q: duplicate account %q", path, acct.Username)
		}
		usernames[acct.Username] = struct{}{}
	}

	return seed, nil
}
