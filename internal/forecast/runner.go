package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// RunError reports a failed forecast job with its exit code and output.
type RunError struct {
	ExitCode int
	Output   string
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("forecast job failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Runner executes the forecast command and checks that it produced the artifact.
type Runner struct {
	Command []string
	Output  string
	Timeout time.Duration
}

// NewRunner creates a Runner. Command is the program followed by its arguments.
func NewRunner(command []string, output string, timeout time.Duration) *Runner {
	return &Runner{Command: command, Output: output, Timeout: timeout}
}

// Run executes the job and waits for it, up to Timeout. A job that exits
// cleanly without writing the artifact yields ErrNoArtifact.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.Command) == 0 {
		return errors.New("forecast command not configured")
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	log.Printf("forecast: running %s", strings.Join(r.Command, " "))
	start := time.Now()
	out, err := cmd.CombinedOutput()
	if err != nil {
		runErr := &RunError{ExitCode: -1, Output: string(out), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			runErr.Err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return runErr
	}
	log.Printf("forecast: finished in %s", time.Since(start).Round(time.Millisecond))

	if _, err := os.Stat(r.Output); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNoArtifact
		}
		return fmt.Errorf("stat forecast output: %w", err)
	}
	return nil
}
