package log

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output encodings accepted by Config.Format
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	log *zap.SugaredLogger

	errorLogMu sync.Mutex
	errorLog   *os.File
	// panicOnInvalidChars is set based on env LOG_PANIC_ON_INVALIDCHARS (parsed as bool)
	panicOnInvalidChars bool
)

// Config holds the logger settings.
type Config struct {
	// Level is one of debug, info, warn, error or fatal.
	Level string
	// Output can be either "stdout", "stderr", a file path or any URL whose
	// scheme was registered with zap.RegisterSink.
	Output string
	// Format is FormatConsole (colorized, the default) or FormatJSON.
	Format string
	// ErrorFile, if set, also receives the warning and error messages.
	ErrorFile string
}

func init() {
	// Allow overriding the default log level via $LOG_LEVEL, so that the
	// environment variable can be set globally even when running tests.
	// Always initializing the logger avoids panics when logging before setup.
	level := "error"
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		level = s
	}
	Init(level, "stderr")
}

// Init initializes the console logger with the given level and output.
// It panics if the logger cannot be built.
func Init(logLevel string, output string) {
	if err := Setup(Config{Level: logLevel, Output: output}); err != nil {
		panic(err)
	}
}

// Setup initializes the logger from cfg.
func Setup(cfg Config) error {
	level, err := levelFromString(cfg.Level)
	if err != nil {
		return err
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
	logger, err := newConfig(level, cfg.Output, cfg.Format).Build()
	if err != nil {
		return fmt.Errorf("cannot build logger: %w", err)
	}
	log = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
	log.Debugf("logger construction succeeded at level %s with output %s", level, cfg.Output)

	if cfg.ErrorFile != "" {
		if err := SetFileErrorLog(cfg.ErrorFile); err != nil {
			return err
		}
	}

	if s := os.Getenv("LOG_PANIC_ON_INVALIDCHARS"); s != "" {
		// ignore ParseBool errors, if anything fails panicOnInvalidChars will stay false which is good
		b, _ := strconv.ParseBool(s)
		panicOnInvalidChars = b
	}
	return nil
}

// SetFileErrorLog if set writes the Warning and Error messages to a file.
func SetFileErrorLog(path string) error {
	log.Infof("using file %s for logging warning and errors", path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	errorLogMu.Lock()
	defer errorLogMu.Unlock()
	if errorLog != nil {
		errorLog.Close()
	}
	errorLog = f
	return nil
}

func levelFromString(logLevel string) (zapcore.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zap.DebugLevel, nil
	case "info", "":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	case "fatal":
		return zap.FatalLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("couldn't parse log level %q", logLevel)
	}
}

func newConfig(level zapcore.Level, output, format string) zap.Config {
	encoderCfg := zapcore.EncoderConfig{
		// Keys can be anything except the empty string.
		TimeKey:       "ts",
		LevelKey:      "level",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalColorLevelEncoder,
		EncodeTime: func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
			encoder.AppendString(ts.Local().Format(time.RFC3339))
		},
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoding := FormatConsole
	if format == FormatJSON {
		encoding = FormatJSON
		encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: encoding,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}
}

func writeErrorToFile(msg string) {
	errorLogMu.Lock()
	f := errorLog
	errorLogMu.Unlock()
	if f == nil {
		return
	}
	// Ignore the error, as we're logging errors anyway.
	fmt.Fprintf(f, "[%s] %s\n", time.Now().Format("2006/0102/150405"), msg)
}

// checkInvalidChars panics, when LOG_PANIC_ON_INVALIDCHARS is true, if the
// formatted string contains the Unicode replacement char (U+FFFD). That almost
// always means a format mismatch in the caller.
func checkInvalidChars(args ...interface{}) {
	if panicOnInvalidChars {
		s := fmt.Sprint(args...)
		if strings.ContainsRune(s, '\uFFFD') {
			panic(fmt.Sprintf("log line with invalid chars: %s", s))
		}
	}
}

// Debug sends a debug level log message
func Debug(args ...interface{}) {
	log.Debug(args...)
	checkInvalidChars(args...)
}

// Info sends an info level log message
func Info(args ...interface{}) {
	log.Info(args...)
	checkInvalidChars(args...)
}

// Warn sends a warn level log message
func Warn(args ...interface{}) {
	log.Warn(args...)
	writeErrorToFile(fmt.Sprint(args...))
	checkInvalidChars(args...)
}

// Error sends an error level log message
func Error(args ...interface{}) {
	log.Error(args...)
	writeErrorToFile(fmt.Sprint(args...))
	checkInvalidChars(args...)
}

// Fatal sends a fatal level log message
func Fatal(args ...interface{}) {
	log.Fatal(args...)
	// Fatal always exits; help analyzers see that.
	panic("unreachable")
}

// Debugf sends a formatted debug level log message
func Debugf(template string, args ...interface{}) {
	log.Debugf(template, args...)
	checkInvalidChars(fmt.Sprintf(template, args...))
}

// Infof sends a formatted info level log message
func Infof(template string, args ...interface{}) {
	log.Infof(template, args...)
	checkInvalidChars(fmt.Sprintf(template, args...))
}

// Warnf sends a formatted warn level log message
func Warnf(template string, args ...interface{}) {
	log.Warnf(template, args...)
	writeErrorToFile(fmt.Sprintf(template, args...))
	checkInvalidChars(fmt.Sprintf(template, args...))
}

// Errorf sends a formatted error level log message
func Errorf(template string, args ...interface{}) {
	log.Errorf(template, args...)
	writeErrorToFile(fmt.Sprintf(template, args...))
	checkInvalidChars(fmt.Sprintf(template, args...))
}

// Fatalf sends a formatted fatal level log message
func Fatalf(template string, args ...interface{}) {
	log.Fatalf(template, args...)
	panic("unreachable")
}

// Debugw sends a key-value formatted debug level log message
func Debugw(msg string, keysAndValues ...interface{}) {
	log.Debugw(msg, keysAndValues...)
}

// Infow sends a key-value formatted info level log message
func Infow(msg string, keysAndValues ...interface{}) {
	log.Infow(msg, keysAndValues...)
}

// Warnw sends a key-value formatted warn level log message
func Warnw(msg string, keysAndValues ...interface{}) {
	log.Warnw(msg, keysAndValues...)
	writeErrorToFile(msg)
}

// Errorw sends a key-value formatted error level log message, with err
// attached under the "error" key.
func Errorw(err error, msg string, keysAndValues ...interface{}) {
	log.Errorw(msg, append([]interface{}{"error", err}, keysAndValues...)...)
	writeErrorToFile(fmt.Sprintf("%s: %v", msg, err))
}
