package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "MICROWHISPER"

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"source":          "audio.source",
	"loopback-marker": "audio.loopback_marker",
	"format":          "audio.format",
	"tmpdir":          "audio.temp_dir",
	"max-duration":    "audio.max_duration",
	"whisper":         "whisper.executable",
	"model":           "whisper.model",
	"language":        "whisper.language",
	"threads":         "whisper.threads",
	"strict-exit":     "whisper.fail_on_exit_code",
	"tui":             "ui.tui",
	"copy":            "ui.copy",
	"beep":            "ui.beep",
	"logpath":         "log.path",
	"logtext":         "log.text",
}

// RegisterFlags adds the config-backed flags plus -config and -env-file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to YAML config file")
	fs.String("env-file", "", "Path to .env file (default ./.env when present)")

	fs.String("source", SourceMicrophone, "Input source: microphone or system")
	fs.String("loopback-marker", defaults["audio.loopback_marker"].(string), "Substring identifying the loopback device")
	fs.String("format", FormatFLAC, "Recording format: flac or wav")
	fs.String("tmpdir", "", "Directory for temporary recordings (default OS temp dir)")
	fs.Duration("max-duration", defaults["audio.max_duration"].(time.Duration), "Hard recording limit")
	fs.String("whisper", defaults["whisper.executable"].(string), "Transcription executable")
	fs.String("model", defaults["whisper.model"].(string), "Whisper model name")
	fs.String("language", defaults["whisper.language"].(string), "Spoken language")
	fs.Int("threads", 0, "Transcription threads (0 = all CPUs)")
	fs.Bool("strict-exit", false, "Treat a non-zero transcriber exit as failure")
	fs.Bool("tui", true, "Use the terminal UI when stdout is a terminal")
	fs.Bool("copy", false, "Copy each finished transcript to the clipboard")
	fs.Bool("beep", true, "Play a sound when recording starts and stops")
	fs.String("logpath", "", "Log directory (default OS log dir, or $"+EnvPrefix+"_LOG_PATH)")
	fs.Bool("logtext", false, "Append transcripts to transcribe_log.txt")
}

// Load resolves the configuration. fs must have been populated by
// RegisterFlags and parsed; it may be nil to skip flag overrides.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var configFile, envFile string
	if fs != nil {
		configFile, _ = fs.GetString("config")
		envFile, _ = fs.GetString("env-file")
	}

	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = defaultConfigFile()
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configFile, err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile loads an explicit .env file, or ./.env when it exists.
// Variables already present in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// defaultConfigFile returns the per-user config path when the file exists.
func defaultConfigFile() string {
	p, err := userConfigPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func userConfigPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "microwhisper", "config.yaml"), nil
}

// SaveLoopbackMarker stores marker in the -config file, or the per-user
// config file, keeping any other settings already there. It returns the
// path written.
func SaveLoopbackMarker(fs *pflag.FlagSet, marker string) (string, error) {
	var path string
	if fs != nil {
		path, _ = fs.GetString("config")
	}
	if path == "" {
		p, err := userConfigPath()
		if err != nil {
			return "", fmt.Errorf("locate config: %w", err)
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.Set("audio.loopback_marker", marker)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config %s: %w", path, err)
	}
	return path, nil
}
