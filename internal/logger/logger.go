package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	Logger   *logrus.Logger // Main logger instance
	initOnce sync.Once
)

// Initialize sets up the logger from LOG_LEVEL and LOG_FILE
func Initialize() {
	Logger = logrus.New()

	Logger.SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	var out io.Writer = os.Stdout
	if path := os.Getenv("LOG_FILE"); path != "" {
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Printf("Failed to open log file: %v\n", err)
		} else {
			out = io.MultiWriter(os.Stdout, logFile)
			Logger.SetReportCaller(true)
		}
	}
	Logger.SetOutput(out)

	Logger.WithFields(logrus.Fields{
		"log_level": Logger.GetLevel().String(),
		"log_file":  os.Getenv("LOG_FILE"),
	}).Info("Logging system initialized")
}

func parseLevel(s string) logrus.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// GetLogger returns the configured logger, initializing it on first use
func GetLogger() *logrus.Logger {
	initOnce.Do(func() {
		if Logger == nil {
			Initialize()
		}
	})
	return Logger
}

// WithContext creates a logger with additional context fields
func WithContext(fields map[string]interface{}) *logrus.Entry {
	return GetLogger().WithFields(fields)
}

// WithUpload creates a logger scoped to one storage object
func WithUpload(key, filename string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"key":       key,
		"filename":  filename,
		"component": "upload_gateway",
	})
}

// WithGemini creates a logger for generative API calls
func WithGemini(callType string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"component": "gemini",
		"call_type": callType,
	})
}

// WithError creates a logger with error context
func WithError(err error, component string) *logrus.Entry {
	fields := logrus.Fields{
		"error":     err.Error(),
		"component": component,
	}

	if GetLogger().GetLevel() >= logrus.DebugLevel {
		fields["stack_trace"] = StackTrace(2)
	}

	return GetLogger().WithFields(fields)
}

// StackTrace returns the caller stack starting skip frames above itself.
func StackTrace(skip int) string {
	var stack []string
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		name := "?"
		if fn != nil {
			name = fn.Name()
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, name))
	}
	return strings.Join(stack, "\n")
}

func Debug(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Debug(msg)
}

func Info(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Info(msg)
}

func Warn(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Warn(msg)
}

func Error(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Error(msg)
}

func Fatal(msg string, fields map[string]interface{}) {
	GetLogger().WithFields(fields).Fatal(msg)
}
