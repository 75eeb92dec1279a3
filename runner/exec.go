package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type ExecRunner struct {
	command string
	args    []string
	envs    []string
}

func NewExecRunner(command string, args []string, envs []string) *ExecRunner {
	return &ExecRunner{
		command, args, envs,
	}
}

func (runner *ExecRunner) String() string {
	return strings.TrimSpace(runner.command + " " + strings.Join(runner.args, " "))
}

// Run executes the command and waits for it to exit. Output is always captured,
// the returned Result is non-nil even when the command fails.
func (runner *ExecRunner) Run(ctx context.Context) (*Result, error) {
	cmd := exec.CommandContext(ctx, runner.command, runner.args...)

	if len(runner.envs) > 0 {
		cmd.Env = append(os.Environ(), runner.envs...)
	}

	var outBuf, errBuf strings.Builder

	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()

	result := &Result{
		Stdout: outBuf.String(),
		Stderr: errBuf.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	if err != nil {
		return result, fmt.Errorf("command error: %v, %s", err, strings.TrimSpace(result.Stderr))
	}

	return result, nil
}
