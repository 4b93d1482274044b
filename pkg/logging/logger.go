package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

// DefaultLevel is used when neither the CLI, the environment nor a config
// file names a level.
const DefaultLevel = "info"

// Options controls logger construction.
type Options struct {
	Name   string
	Level  string    // "trace".."error", or "json" / "json:<level>" for JSON output
	Path   string    // optional log file, appended to instead of Output; see Open
	Output io.Writer // defaults to os.Stderr
}

// NewLogger creates a new hclog logger with standard settings
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	return New(Options{Name: name, Level: level, Output: output})
}

// Open creates a logger that writes to opts.Path when set. The returned
// function closes the log file and must be called once logging is done.
func Open(opts Options) (hclog.Logger, func() error, error) {
	if opts.Path == "" {
		return New(opts), func() error { return nil }, nil
	}
	file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, cerrors.IOf(err, "open log file %s", opts.Path)
	}
	opts.Output = file
	return New(opts), file.Close, nil
}

// New creates a logger from options. Path is ignored here; use Open for file
// output.
func New(opts Options) hclog.Logger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	level, jsonFormat := ParseLevel(opts.Level)

	// Add prefix for non-JSON output
	if !jsonFormat {
		output = NewPrefixWriter("📦 ", output)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// ParseLevel splits a "json:<level>" specification into its level and
// format. Plain "json" means JSON at info level.
func ParseLevel(spec string) (level string, jsonFormat bool) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" {
		return DefaultLevel, false
	}
	if strings.HasPrefix(spec, "json") {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) == 2 && parts[1] != "" {
			return parts[1], true
		}
		return DefaultLevel, true
	}
	return spec, false
}

// GetLogLevel returns the configured log level from environment
func GetLogLevel() string {
	return os.Getenv("CAPSULA_LOG_LEVEL")
}
