package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options controls the process-wide logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // optional file receiving a copy of every entry
	Debug  bool   // forces debug level
}

// Setup configures the standard logrus logger. The returned closer releases the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	return configure(logrus.StandardLogger(), opts, os.Stderr)
}

func configure(log *logrus.Logger, opts Options, stderr io.Writer) (io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nopCloser{}, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	if opts.Debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nopCloser{}, fmt.Errorf("invalid log format %q", opts.Format)
	}

	if opts.File == "" {
		log.SetOutput(stderr)
		return nopCloser{}, nil
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.SetOutput(stderr)
		log.WithError(err).Error("Could not create file for logging")
		return nopCloser{}, nil
	}
	log.SetOutput(io.MultiWriter(stderr, file))
	return file, nil
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
