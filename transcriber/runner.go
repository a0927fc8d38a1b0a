package transcriber

import (
	"errors"
	"io"
	"os"
	"os/exec"
)

// process is a started command.
type process interface {
	// Wait returns the exit code. err is non-nil only when the exit status
	// could not be determined.
	Wait() (exitCode int, err error)
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Start(name string, args, env []string, out io.Writer) (process, error)
}

// execRunner starts commands via os/exec. Stdout and stderr share out.
// Commands are not bound to a context: once launched they run to completion.
type execRunner struct{}

func (execRunner) Start(name string, args, env []string, out io.Writer) (process, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
