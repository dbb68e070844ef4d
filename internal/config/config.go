// Package config loads gamedex settings from a config file, .env files,
// and environment variables, and exposes storefront credentials through
// the library.CredentialSource contract.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/library"
)

// Configuration keys. Environment variables use the GAMEDEX_ prefix with
// dots replaced by underscores, e.g. GAMEDEX_STEAM_API_KEY.
const (
	KeyDatabasePath = "database.path"
	KeyIGDBProxyURL = "igdb.proxy_url"
	KeyIGDBClientID = "igdb.client_id"
	KeySteamAPIKey  = "steam.api_key"
	KeySteamUserID  = "steam.user_id"
	KeyGogUser      = "gog.user"
	KeyItchAPIKey   = "itch.api_key"
	KeyEpicAuth     = "epic.auth"
)

const envPrefix = "GAMEDEX"

// Config holds the resolved settings for one invocation.
type Config struct {
	DatabasePath string
	IGDBProxyURL string
	IGDBClientID string
	SteamAPIKey  string
}

// Load reads .env files, the config file (explicit path, else
// .gamedex.yaml in the home directory or cwd), and the environment.
// A missing config file is not an error.
func Load(configFile string) (*Config, error) {
	// .env.local overrides .env.
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gamedex")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(KeyDatabasePath, defaultDatabasePath())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		DatabasePath: viper.GetString(KeyDatabasePath),
		IGDBProxyURL: viper.GetString(KeyIGDBProxyURL),
		IGDBClientID: viper.GetString(KeyIGDBClientID),
		SteamAPIKey:  viper.GetString(KeySteamAPIKey),
	}, nil
}

// SteamCredential returns the Steam user id credential source.
func SteamCredential() library.CredentialSource { return viperCredential{key: KeySteamUserID} }

// GogCredential returns the GOG profile name credential source.
func GogCredential() library.CredentialSource { return viperCredential{key: KeyGogUser} }

// ItchCredential returns the itch.io API key credential source.
func ItchCredential() library.CredentialSource { return viperCredential{key: KeyItchAPIKey} }

// EpicCredential returns the Epic session blob credential source.
// Refreshed tokens are written back to the config file so the next run
// can reuse them.
func EpicCredential() library.CredentialSource { return viperCredential{key: KeyEpicAuth} }

// viperCredential reads a single viper key. SetCredential persists the
// value to the config file, creating .gamedex.yaml in the home directory
// when no file exists yet.
type viperCredential struct {
	key string
}

func (c viperCredential) Credential(ctx context.Context) (string, error) {
	return viper.GetString(c.key), nil
}

func (c viperCredential) SetCredential(ctx context.Context, value string) error {
	viper.Set(c.key, value)
	if viper.ConfigFileUsed() != "" {
		if err := viper.WriteConfig(); err != nil {
			return fmt.Errorf("persist %s: %w", c.key, err)
		}
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("persist %s: %w", c.key, err)
	}
	path := filepath.Join(home, ".gamedex.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("persist %s: %w", c.key, err)
	}
	return nil
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gamedex.db"
	}
	return filepath.Join(home, ".gamedex", "library.db")
}
