// Package transcriber runs an external whisper-compatible CLI over a
// recording artifact and reports progress and the recovered text.
package transcriber

import (
	"cmp"
	"errors"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrProcessLaunchFailed is reported when the executable cannot be started.
	ErrProcessLaunchFailed = errors.New("transcription process launch failed")
	// ErrProcessExited is reported for a non-zero exit when Config.FailOnExitCode is set.
	ErrProcessExited = errors.New("transcription process exited with error")
)

// NoOutputText is the completed text when the process produced nothing.
const NoOutputText = "No transcription output available."

const progressText = "Processing transcription"

type ResultKind int

const (
	Progress ResultKind = iota
	Complete
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case Progress:
		return "progress"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Result struct {
	Kind ResultKind
	Text string
	Err  error
}

func (r Result) Terminal() bool {
	return r.Kind == Complete || r.Kind == Failed
}

type DecodingParams struct {
	BeamSize                int
	BestOf                  int
	Temperature             float64
	NoSpeechThreshold       float64
	ConditionOnPreviousText bool
	InitialPrompt           string
}

type Config struct {
	Executable   string
	Model        string
	Language     string
	Task         string
	OutputFormat string
	Device       string
	// Threads of 0 means one per CPU.
	Threads  int
	Decoding DecodingParams
	// Env is appended to the inherited environment.
	Env              []string
	ProgressInterval time.Duration
	FailOnExitCode   bool
}

func DefaultConfig() Config {
	return Config{
		Executable:   "whisper",
		Model:        "base.en",
		Language:     "en",
		Task:         "transcribe",
		OutputFormat: "txt",
		Device:       "cpu",
		Decoding: DecodingParams{
			BeamSize:          1,
			BestOf:            1,
			NoSpeechThreshold: 0.6,
			InitialPrompt:     "Transcript:",
		},
		Env:              []string{"PYTHONWARNINGS=ignore"},
		ProgressInterval: 2 * time.Second,
	}
}

// Request describes one transcription. Empty Model and Language and a nil
// Decoding fall back to the job's Config.
type Request struct {
	ID           string
	ArtifactPath string
	Model        string
	Language     string
	Decoding     *DecodingParams
}

// BuildArgs returns the CLI arguments for req. Output files are written
// next to the artifact.
func BuildArgs(cfg Config, req Request) []string {
	model := cmp.Or(req.Model, cfg.Model)
	language := cmp.Or(req.Language, cfg.Language)
	dec := cfg.Decoding
	if req.Decoding != nil {
		dec = *req.Decoding
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	args := []string{
		req.ArtifactPath,
		"--model", model,
		"--output_format", cmp.Or(cfg.OutputFormat, "txt"),
		"--output_dir", filepath.Dir(req.ArtifactPath),
		"--device", cmp.Or(cfg.Device, "cpu"),
		"--no_speech_threshold", pyFloat(dec.NoSpeechThreshold),
		"--fp16", pyBool(cfg.Device != "" && cfg.Device != "cpu"),
		"--threads", strconv.Itoa(threads),
		"--beam_size", strconv.Itoa(dec.BeamSize),
		"--best_of", strconv.Itoa(dec.BestOf),
		"--condition_on_previous_text", pyBool(dec.ConditionOnPreviousText),
		"--temperature", pyFloat(dec.Temperature),
	}
	if dec.InitialPrompt != "" {
		args = append(args, "--initial_prompt", dec.InitialPrompt)
	}
	args = append(args, "--task", cmp.Or(cfg.Task, "transcribe"))
	if language != "" {
		args = append(args, "--language", language)
	}
	return args
}

// SiblingOutputPath is where the CLI writes its text output for artifact.
func SiblingOutputPath(cfg Config, artifact string) string {
	return strings.TrimSuffix(artifact, filepath.Ext(artifact)) + "." + cmp.Or(cfg.OutputFormat, "txt")
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func pyFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
