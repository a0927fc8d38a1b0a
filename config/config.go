// Package config loads microwhisper settings from flags, MICROWHISPER_*
// environment variables, an optional .env file and an optional YAML file.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	FormatFLAC = "flac"
	FormatWAV  = "wav"

	SourceMicrophone  = "microphone"
	SourceSystemAudio = "system"
)

type Config struct {
	Audio   AudioConfig   `mapstructure:"audio"`
	Whisper WhisperConfig `mapstructure:"whisper"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
}

type AudioConfig struct {
	Source         string        `mapstructure:"source"`
	LoopbackMarker string        `mapstructure:"loopback_marker"`
	Format         string        `mapstructure:"format"`
	TempDir        string        `mapstructure:"temp_dir"`
	MaxDuration    time.Duration `mapstructure:"max_duration"`
	MeterInterval  time.Duration `mapstructure:"meter_interval"`
	WatchInterval  time.Duration `mapstructure:"watch_interval"`
}

type WhisperConfig struct {
	Executable              string        `mapstructure:"executable"`
	Model                   string        `mapstructure:"model"`
	Language                string        `mapstructure:"language"`
	Task                    string        `mapstructure:"task"`
	OutputFormat            string        `mapstructure:"output_format"`
	Device                  string        `mapstructure:"device"`
	Threads                 int           `mapstructure:"threads"`
	NoSpeechThreshold       float64       `mapstructure:"no_speech_threshold"`
	BeamSize                int           `mapstructure:"beam_size"`
	BestOf                  int           `mapstructure:"best_of"`
	Temperature             float64       `mapstructure:"temperature"`
	ConditionOnPreviousText bool          `mapstructure:"condition_on_previous_text"`
	InitialPrompt           string        `mapstructure:"initial_prompt"`
	ProgressInterval        time.Duration `mapstructure:"progress_interval"`
	FailOnExitCode          bool          `mapstructure:"fail_on_exit_code"`
}

type UIConfig struct {
	TUI  bool `mapstructure:"tui"`
	Copy bool `mapstructure:"copy"`
	Beep bool `mapstructure:"beep"`
}

type LogConfig struct {
	Path string `mapstructure:"path"`
	Text bool   `mapstructure:"text"`
}

var defaults = map[string]any{
	"audio.source":          SourceMicrophone,
	"audio.loopback_marker": "BlackHole",
	"audio.format":          FormatFLAC,
	"audio.temp_dir":        "",
	"audio.max_duration":    3700 * time.Second,
	"audio.meter_interval":  50 * time.Millisecond,
	"audio.watch_interval":  3 * time.Second,

	"whisper.executable":                 "whisper",
	"whisper.model":                      "base.en",
	"whisper.language":                   "en",
	"whisper.task":                       "transcribe",
	"whisper.output_format":              "txt",
	"whisper.device":                     "cpu",
	"whisper.threads":                    0,
	"whisper.no_speech_threshold":        0.6,
	"whisper.beam_size":                  1,
	"whisper.best_of":                    1,
	"whisper.temperature":                0.0,
	"whisper.condition_on_previous_text": false,
	"whisper.initial_prompt":             "Transcript:",
	"whisper.progress_interval":          2 * time.Second,
	"whisper.fail_on_exit_code":          false,

	"ui.tui":  true,
	"ui.copy": false,
	"ui.beep": true,

	"log.path": "",
	"log.text": false,
}

func (c *Config) Validate() error {
	var errs []string
	if !slices.Contains([]string{FormatFLAC, FormatWAV}, c.Audio.Format) {
		errs = append(errs, fmt.Sprintf("audio.format must be one of %s, %s", FormatFLAC, FormatWAV))
	}
	if !slices.Contains([]string{SourceMicrophone, SourceSystemAudio}, c.Audio.Source) {
		errs = append(errs, fmt.Sprintf("audio.source must be one of %s, %s", SourceMicrophone, SourceSystemAudio))
	}
	if c.Audio.MaxDuration <= 0 {
		errs = append(errs, "audio.max_duration must be positive")
	}
	if c.Audio.MeterInterval <= 0 {
		errs = append(errs, "audio.meter_interval must be positive")
	}
	if c.Audio.WatchInterval <= 0 {
		errs = append(errs, "audio.watch_interval must be positive")
	}
	if strings.TrimSpace(c.Audio.LoopbackMarker) == "" {
		errs = append(errs, "audio.loopback_marker is required")
	}
	if strings.TrimSpace(c.Whisper.Executable) == "" {
		errs = append(errs, "whisper.executable is required")
	}
	if c.Whisper.Model == "" {
		errs = append(errs, "whisper.model is required")
	}
	if c.Whisper.ProgressInterval <= 0 {
		errs = append(errs, "whisper.progress_interval must be positive")
	}
	if c.Whisper.Threads < 0 {
		errs = append(errs, "whisper.threads must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
