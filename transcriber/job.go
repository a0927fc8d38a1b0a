package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"microwhisper/log"
)

// Job runs the transcription CLI. A Job is stateless between runs; each
// Run call supervises one process.
type Job struct {
	cfg      Config
	runner   commandRunner
	readFile func(string) ([]byte, error)
	remove   func(string) error
}

func NewJob(cfg Config) *Job {
	return newJob(cfg, execRunner{})
}

func newJob(cfg Config, runner commandRunner) *Job {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultConfig().ProgressInterval
	}
	if cfg.Executable == "" {
		cfg.Executable = DefaultConfig().Executable
	}
	return &Job{cfg: cfg, runner: runner, readFile: os.ReadFile, remove: os.Remove}
}

func (j *Job) Config() Config {
	return j.cfg
}

// Run launches the CLI for req and returns a channel of results. Zero or
// more Progress results are followed by exactly one Complete or Failed,
// after which the channel is closed. The artifact is removed before the
// terminal result is sent. Cancelling ctx stops delivery but not the
// process.
func (j *Job) Run(ctx context.Context, req Request) <-chan Result {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ch := make(chan Result, 1)
	go j.run(ctx, req, ch)
	return ch
}

type exitStatus struct {
	code int
	err  error
}

func (j *Job) run(ctx context.Context, req Request, ch chan<- Result) {
	defer close(ch)

	send := func(r Result) {
		select {
		case ch <- r:
		case <-ctx.Done():
		}
	}
	cleanup := sync.OnceFunc(func() { j.removeQuiet(req.ArtifactPath, "artifact") })
	defer cleanup()

	start := time.Now()
	args := BuildArgs(j.cfg, req)
	var out bytes.Buffer

	proc, err := j.runner.Start(j.cfg.Executable, args, j.cfg.Env, &out)
	if err != nil {
		log.Errorf("transcription %s: launch %s: %v", req.ID, j.cfg.Executable, err)
		cleanup()
		send(Result{Kind: Failed, Err: fmt.Errorf("%w: %s: %v", ErrProcessLaunchFailed, j.cfg.Executable, err)})
		return
	}

	waited := make(chan exitStatus, 1)
	go func() {
		code, err := proc.Wait()
		waited <- exitStatus{code, err}
	}()

	ticker := time.NewTicker(j.cfg.ProgressInterval)
	defer ticker.Stop()
	dots := 0
	var status exitStatus
wait:
	for {
		select {
		case status = <-waited:
			break wait
		case <-ticker.C:
			dots = (dots + 1) % 4
			if ctx.Err() == nil {
				send(Result{Kind: Progress, Text: progressText + strings.Repeat(".", dots)})
			}
		}
	}

	output := out.String()
	if status.err != nil {
		log.Warnf("transcription %s: wait: %v", req.ID, status.err)
	} else if status.code != 0 {
		log.Warnf("transcription %s: %s exited with code %d", req.ID, j.cfg.Executable, status.code)
	}

	text, recovered := j.recover(req, output)
	log.TranscriptionDone(req.ID, status.code, len(output), time.Since(start), recovered)
	cleanup()

	if j.cfg.FailOnExitCode && (status.code != 0 || status.err != nil) {
		err := fmt.Errorf("%w: exit code %d", ErrProcessExited, status.code)
		if status.err != nil {
			err = fmt.Errorf("%w: %w", ErrProcessExited, status.err)
		}
		if tail := lastLine(output); tail != "" {
			err = fmt.Errorf("%w: %s", err, tail)
		}
		send(Result{Kind: Failed, Err: err})
		return
	}
	send(Result{Kind: Complete, Text: text})
}

// recover picks the transcript: captured output first, then the sibling
// output file, then NoOutputText. The sibling file is always removed.
func (j *Job) recover(req Request, output string) (string, string) {
	sibling := SiblingOutputPath(j.cfg, req.ArtifactPath)
	fileText, fileErr := j.readFile(sibling)
	if fileErr == nil {
		j.removeQuiet(sibling, "output file")
	} else if !errors.Is(fileErr, os.ErrNotExist) {
		log.Warnf("transcription %s: read %s: %v", req.ID, sibling, fileErr)
	}

	if text := strings.TrimSpace(output); text != "" {
		return text, "output"
	}
	if text := strings.TrimSpace(string(fileText)); fileErr == nil && text != "" {
		return text, "file"
	}
	return NoOutputText, "none"
}

func (j *Job) removeQuiet(path, what string) {
	if path == "" {
		return
	}
	if err := j.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("remove %s %s: %v", what, path, err)
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
