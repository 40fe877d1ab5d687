// Package logger provides structured logging scoped to components and builds
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger interface for abstracted logging
type Logger interface {
	Info(message string, fields ...Field)
	Error(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Debug(message string, fields ...Field)
	Success(message string, fields ...Field)
	WithComponent(component string) Logger
	WithBuild(buildID string) Logger
	SetLevel(level string)
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// WithError creates an "error" field
func WithError(err error) Field {
	return Field{Key: "error", Value: err}
}

// ScopedLogger implements Logger on top of a shared logrus instance
type ScopedLogger struct {
	logger    *logrus.Logger
	component string
	buildID   string
}

// Formatter renders entries as a single colored console line
type Formatter struct {
	TimestampFormat string
	DisableColors   bool
}

// Format implements logrus.Formatter
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelColor *color.Color
	var levelText string

	switch entry.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelColor = color.New(color.FgRed, color.Bold)
		levelText = "ERROR"
	case logrus.WarnLevel:
		levelColor = color.New(color.FgYellow, color.Bold)
		levelText = "WARN"
	case logrus.DebugLevel, logrus.TraceLevel:
		levelColor = color.New(color.FgWhite, color.Faint)
		levelText = "DEBUG"
	default:
		levelColor = color.New(color.FgCyan)
		levelText = "INFO"
	}

	data := make(logrus.Fields, len(entry.Data))
	for k, v := range entry.Data {
		data[k] = v
	}

	var scope []string
	if c, ok := data["component"]; ok {
		scope = append(scope, fmt.Sprint(c))
		delete(data, "component")
	}
	if b, ok := data["build"]; ok {
		scope = append(scope, fmt.Sprint(b))
		delete(data, "build")
	}

	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(entry.Time.Format(f.TimestampFormat))
	sb.WriteString("] ")
	if f.DisableColors {
		sb.WriteString(levelText)
	} else {
		sb.WriteString(levelColor.Sprint(levelText))
	}
	sb.WriteString(": ")
	if len(scope) > 0 {
		prefix := "[" + strings.Join(scope, "/") + "]"
		if !f.DisableColors {
			prefix = color.New(color.FgBlue).Sprint(prefix)
		}
		sb.WriteString(prefix)
		sb.WriteString(" ")
	}
	sb.WriteString(entry.Message)

	if len(data) > 0 {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
		}
		fields := " {" + strings.Join(parts, ", ") + "}"
		if f.DisableColors {
			sb.WriteString(fields)
		} else {
			sb.WriteString(color.New(color.FgWhite, color.Faint).Sprint(fields))
		}
	}

	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

// CreateLogger creates a console logger, teeing to logFile when set
func CreateLogger(logFile string, logLevel string) Logger {
	log := newLogrus(logLevel, false)

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err == nil {
			log.SetOutput(io.MultiWriter(os.Stdout, file))
		}
	}

	return &ScopedLogger{logger: log}
}

// CreateLoggerWithOutput creates a colorless logger writing to output (for testing)
func CreateLoggerWithOutput(logLevel string, output io.Writer) Logger {
	log := newLogrus(logLevel, true)
	log.SetOutput(output)
	return &ScopedLogger{logger: log}
}

// Discard returns a logger that drops everything
func Discard() Logger {
	return CreateLoggerWithOutput("error", io.Discard)
}

func newLogrus(logLevel string, disableColors bool) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(parseLevel(logLevel))
	log.SetFormatter(&Formatter{
		TimestampFormat: "15:04:05",
		DisableColors:   disableColors,
	})
	return log
}

func parseLevel(logLevel string) logrus.Level {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// WithComponent returns a logger tagging entries with a component name
func (l *ScopedLogger) WithComponent(component string) Logger {
	return &ScopedLogger{logger: l.logger, component: component, buildID: l.buildID}
}

// WithBuild returns a logger tagging entries with a build id
func (l *ScopedLogger) WithBuild(buildID string) Logger {
	return &ScopedLogger{logger: l.logger, component: l.component, buildID: buildID}
}

// SetLevel changes the level of the shared logrus instance
func (l *ScopedLogger) SetLevel(level string) {
	l.logger.SetLevel(parseLevel(level))
}

func (l *ScopedLogger) entry(fields []Field) *logrus.Entry {
	data := make(logrus.Fields, len(fields)+2)
	if l.component != "" {
		data["component"] = l.component
	}
	if l.buildID != "" {
		data["build"] = l.buildID
	}
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return l.logger.WithFields(data)
}

// Info logs an info message
func (l *ScopedLogger) Info(message string, fields ...Field) {
	l.entry(fields).Info(message)
}

// Error logs an error message
func (l *ScopedLogger) Error(message string, fields ...Field) {
	l.entry(fields).Error(message)
}

// Warn logs a warning message
func (l *ScopedLogger) Warn(message string, fields ...Field) {
	l.entry(fields).Warn(message)
}

// Debug logs a debug message
func (l *ScopedLogger) Debug(message string, fields ...Field) {
	l.entry(fields).Debug(message)
}

// Success logs at info level with a check mark
func (l *ScopedLogger) Success(message string, fields ...Field) {
	l.entry(fields).Info("✅ " + message)
}
