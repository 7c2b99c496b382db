// Package cli holds the flag, logging and exit-code plumbing shared by the
// commands under cmd/.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/chazu/uvreg/pkg/logging"
	"github.com/chazu/uvreg/pkg/metrics"
)

// Process exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// UsageError reports invalid command-line arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Usagef returns a UsageError.
func Usagef(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// Common holds the flags every command accepts.
type Common struct {
	LogLevel        string
	LogFormat       string
	LogFile         string
	MetricsTextfile string
}

// Register adds the common flags to fs.
func (c *Common) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log_level", "", "log level (debug, info, warn, error); default $"+logging.EnvLevel+" or info")
	fs.StringVar(&c.LogFormat, "log_format", "", "log format (console or json); default $"+logging.EnvFormat+" or console")
	fs.StringVar(&c.LogFile, "log_file", "", "log to this file instead of stderr")
	fs.StringVar(&c.MetricsTextfile, "metrics_textfile", "", "write Prometheus metrics to this file on exit")
}

// Logger builds the command logger.
func (c *Common) Logger(command string) (*logging.Logger, error) {
	cfg := logging.ConfigFromEnv(c.LogLevel, c.LogFormat)
	cfg.OutputPath = c.LogFile
	cfg.Fields = map[string]string{"command": command}
	return logging.New(cfg)
}

// Command is one parsed invocation.
type Command struct {
	Name    string
	Flags   *flag.FlagSet
	Common  Common
	Log     *logging.Logger
	Metrics *metrics.Pipeline
}

// New returns a command whose flag set reports errors instead of exiting.
func New(name, usage string, stderr io.Writer) *Command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s %s\n\n", name, usage)
		fs.PrintDefaults()
	}
	c := &Command{Name: name, Flags: fs}
	c.Common.Register(fs)
	return c
}

// Parse parses args and requires exactly nargs positional arguments.
// Positional arguments may appear before, between or after flags; anything
// after "--" is positional.
func (c *Command) Parse(args []string, nargs int) ([]string, error) {
	var pos []string
	rest := args
	for {
		if err := c.Flags.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, &UsageError{Msg: err.Error()}
		}
		left := c.Flags.Args()
		if consumed := rest[:len(rest)-len(left)]; len(consumed) > 0 && consumed[len(consumed)-1] == "--" {
			pos = append(pos, left...)
			break
		}
		if len(left) == 0 {
			break
		}
		pos = append(pos, left[0])
		rest = left[1:]
	}
	if len(pos) != nargs {
		c.Flags.Usage()
		return nil, Usagef("%s: expected %d arguments, got %d", c.Name, nargs, len(pos))
	}
	return pos, nil
}

// Start builds the logger and metrics registry.
func (c *Command) Start() error {
	log, err := c.Common.Logger(c.Name)
	if err != nil {
		return fmt.Errorf("%s: logger: %w", c.Name, err)
	}
	c.Log = log
	c.Metrics = metrics.New()
	return nil
}

// Finish writes the metrics textfile and flushes the logger. It maps err to
// an exit code, logging it first.
func (c *Command) Finish(err error, stderr io.Writer) int {
	if c.Log != nil {
		if werr := c.Metrics.WriteTextfile(c.Common.MetricsTextfile); werr != nil {
			c.Log.Warn("metrics not written", zap.Error(werr))
		}
		if err != nil {
			c.Log.Error("command failed", zap.Error(err))
		}
		c.Log.Sync()
	} else if err != nil {
		fmt.Fprintln(stderr, err)
	}
	return ExitCode(err)
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	var ue *UsageError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.As(err, &ue):
		return ExitUsage
	default:
		return ExitError
	}
}
