package nstat

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultCommand is the binary invoked when no other name is configured.
const DefaultCommand = "nstat"

// Command line tokens understood by nstat.
const (
	FlagAll      = "-a"
	FlagJSON     = "-j"
	FlagNoUpdate = "-s"
	FlagReset    = "-n"
)

// Options selects the flags of a single nstat invocation.
type Options struct {
	IncludeAll   bool
	JSON         bool
	NoUpdate     bool
	ResetHistory bool
}

// Regular is the option set used for every sample of the run loop.
var Regular = Options{JSON: true, NoUpdate: true}

// Reset is the option set used for the one-time counter reset.
var Reset = Options{ResetHistory: true}

// Args builds the command line arguments. ResetHistory eclipses every other flag.
func (o Options) Args() []string {
	if o.ResetHistory {
		return []string{FlagReset}
	}

	args := make([]string, 0, 3)
	if o.IncludeAll {
		args = append(args, FlagAll)
	}
	if o.JSON {
		args = append(args, FlagJSON)
	}
	if o.NoUpdate {
		args = append(args, FlagNoUpdate)
	}
	return args
}

// Timestamped reports whether a sample taken with these options carries a time marker.
func (o Options) Timestamped() bool {
	return !o.ResetHistory
}

// Kind is the label used for metrics and logs.
func (o Options) Kind() string {
	if o.ResetHistory {
		return "reset"
	}
	return "regular"
}

// Runner executes an external binary and returns its standard output.
type Runner interface {
	Output(name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. The call blocks until the process
// exits; there is no timeout.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Output(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr
	return cmd.Output()
}

// Command wraps a Runner with the decoding and error classification of a sample.
type Command struct {
	Name   string
	Runner Runner
	Logger *zap.Logger
}

func NewCommand(name string, runner Runner, logger *zap.Logger) *Command {
	if name == "" {
		name = DefaultCommand
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Command{
		Name:   name,
		Runner: runner,
		Logger: logger,
	}
}

// Execute runs the command with the given options and returns its output as text.
// A non-zero exit status is logged and the captured output is still returned.
func (c *Command) Execute(opts Options) (string, error) {
	args := opts.Args()
	cmdline := c.cmdline(args)

	c.Logger.Debug("Running cmd", zap.String("cmd", cmdline))
	out, err := c.Runner.Output(c.Name, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", &LaunchError{Command: cmdline, Err: err}
		}
		c.Logger.Warn("Command exited with non-zero status",
			zap.String("cmd", cmdline),
			zap.Int("exit_code", exitErr.ExitCode()),
		)
	}

	if !utf8.Valid(out) {
		return "", &DecodeError{Command: cmdline, Size: len(out)}
	}

	result := string(out)
	c.Logger.Debug("Result from cmd", zap.String("cmd", cmdline), zap.String("result", result))
	return result, nil
}

func (c *Command) cmdline(args []string) string {
	if len(args) == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s %s", c.Name, strings.Join(args, " "))
}
