// Package config loads CLI settings from defaults, a YAML file, RSATEXT_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/core"
)

// FileName is the base name of the config file, without extension.
const FileName = "rsatext"

// EnvPrefix is prepended to every environment override, e.g. RSATEXT_BITS.
const EnvPrefix = "rsatext"

// Config holds the settings shared by the CLI commands. Keys match the long
// flag names.
type Config struct {
	Bits        int    `mapstructure:"bits" yaml:"bits"`
	Rounds      int    `mapstructure:"rounds" yaml:"rounds"`
	MaxAttempts int    `mapstructure:"max-attempts" yaml:"max-attempts"`
	KeyDir      string `mapstructure:"key-dir" yaml:"key-dir"`
	Store       string `mapstructure:"store" yaml:"store"`
	LogLevel    string `mapstructure:"log-level" yaml:"log-level"`
}

// Default returns the built-in settings: 1024-bit primes, key files in the
// working directory, no key store.
func Default() Config {
	p := core.DefaultParams()
	return Config{
		Bits:        p.PrimeBits,
		Rounds:      p.MillerRabinRounds,
		MaxAttempts: p.MaxAttempts,
		KeyDir:      ".",
		LogLevel:    "warn",
	}
}

func defaultsMap() map[string]any {
	d := Default()
	return map[string]any{
		"bits":         d.Bits,
		"rounds":       d.Rounds,
		"max-attempts": d.MaxAttempts,
		"key-dir":      d.KeyDir,
		"store":        d.Store,
		"log-level":    d.LogLevel,
	}
}

// Params converts the settings into a validated generation parameter set.
func (c Config) Params() (rsatext.Params, error) {
	p, err := core.ParamsForBits(c.Bits)
	if err != nil {
		return rsatext.Params{}, err
	}
	p.MillerRabinRounds = c.Rounds
	p.MaxAttempts = c.MaxAttempts
	if err := core.ValidateParams(p); err != nil {
		return rsatext.Params{}, err
	}
	return p, nil
}

// GetConfigPath returns the per-user (or, with system set, machine-wide)
// location of the config file.
func GetConfigPath(system bool) (string, error) {
	var dir string
	if system {
		switch runtime.GOOS {
		case "windows":
			dir = filepath.Join(os.Getenv("ProgramData"), "rsatext")
		default:
			dir = "/etc/rsatext"
		}
	} else {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		dir = filepath.Join(userDir, "rsatext")
	}
	return filepath.Join(dir, FileName+".yaml"), nil
}

// Load resolves the settings for cmd. When configFile is non-empty it is read
// instead of searching the standard locations, and it must exist.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range defaultsMap() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if p, err := GetConfigPath(false); err == nil {
			v.AddConfigPath(filepath.Dir(p))
		}
		if p, err := GetConfigPath(true); err == nil {
			v.AddConfigPath(filepath.Dir(p))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		defaults := defaultsMap()
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if _, known := defaults[f.Name]; !known || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(f.Name, f)
		})
		if bindErr != nil {
			return c, bindErr
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to decode config: %w", err)
	}
	return c, nil
}

// WriteConfigFile writes c as YAML to path, or to the per-user location when
// path is empty. An existing file is only replaced when overwrite is set.
// It returns the path written.
func WriteConfigFile(c Config, path string, overwrite bool) (string, error) {
	if path == "" {
		p, err := GetConfigPath(false)
		if err != nil {
			return "", err
		}
		path = p
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config file %s already exists", path)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
