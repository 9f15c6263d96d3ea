// Package logging provides the leveled logger used by the extraction pipeline
// and the command line tool. Output goes to stdout or to a rotating log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
)

// Level is the minimum severity a logger writes
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarningLevel
	ErrorLevel
	SilentLevel
)

// ParseLevel converts a configuration string into a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warning", "warn":
		return WarningLevel, nil
	case "error":
		return ErrorLevel, nil
	case "silent", "none":
		return SilentLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger records messages at different severities
type Logger interface {
	// Debugf formats its arguments analogous to fmt.Printf and records the text
	// at Debug level
	Debugf(format string, args ...interface{})

	// Infof is like Debugf, but at Info level
	Infof(format string, args ...interface{})

	// Warningf is like Debugf, but at Warning level
	Warningf(format string, args ...interface{})

	// Errorf is like Debugf, but at Error level
	Errorf(format string, args ...interface{})
}

// FileConfig describes a rotating log file
type FileConfig struct {
	Logfile string
	MaxSize int // megabytes
	MaxAge  int // days
}

// stdLogger writes through a standard library logger
type stdLogger struct {
	out   *log.Logger
	level Level
}

// New returns a logger writing to w at or above the level
func New(w io.Writer, level Level) Logger {
	return &stdLogger{out: log.New(w, "", log.LstdFlags), level: level}
}

// NewFromConfig returns a logger writing to the rotating file described by
// c, or to stdout when no file is configured. The returned closer releases
// the file and is never nil.
func NewFromConfig(c FileConfig, level Level) (Logger, io.Closer) {
	if c.Logfile == "" {
		return New(os.Stdout, level), io.NopCloser(nil)
	}
	l := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize,
		MaxAge:   c.MaxAge,
	}
	return &stdLogger{out: log.New(l, "", log.LstdFlags), level: level}, l
}

func (s *stdLogger) write(level Level, tag, format string, args []interface{}) {
	if level < s.level {
		return
	}
	s.out.Printf(tag+" "+format, args...)
}

func (s *stdLogger) Debugf(format string, args ...interface{}) {
	s.write(DebugLevel, "DEBUG", format, args)
}

func (s *stdLogger) Infof(format string, args ...interface{}) {
	s.write(InfoLevel, "INFO", format, args)
}

func (s *stdLogger) Warningf(format string, args ...interface{}) {
	s.write(WarningLevel, "WARNING", format, args)
}

func (s *stdLogger) Errorf(format string, args ...interface{}) {
	s.write(ErrorLevel, "ERROR", format, args)
}

type nopLogger struct{}

// Nop returns a logger that discards everything
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debugf(string, ...interface{})   {}
func (nopLogger) Infof(string, ...interface{})    {}
func (nopLogger) Warningf(string, ...interface{}) {}
func (nopLogger) Errorf(string, ...interface{})   {}

// TimeLog appends the elapsed time since its creation to every message.
// Example:
//
//	tlog := logging.NewTimeLog(logger)
//	...
//	tlog.Infof("labeled %d zones", n) // "labeled 12 zones: 35ms"
type TimeLog struct {
	logger Logger
	start  time.Time
}

// NewTimeLog starts a timer on top of the logger
func NewTimeLog(l Logger) TimeLog {
	return TimeLog{logger: l, start: time.Now()}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	t.logger.Debugf(format+": %s", append(args, time.Since(t.start))...)
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	t.logger.Infof(format+": %s", append(args, time.Since(t.start))...)
}
