package internal

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents different logging levels.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger wraps the standard library logger with level filtering and
// sensitive-data redaction. There is no package-level instance: every
// caller that needs one constructs it via NewLogger and threads it down
// through the DownloadRequest it configures.
type Logger struct {
	logger    *log.Logger
	level     LogLevel
	debug     bool
	quiet     bool
	runID     string
	redactors []Redactor
}

// Redactor scrubs sensitive substrings out of a log line before it is written.
type Redactor interface {
	Redact(input string) string
}

// AuthRedactor strips credential-bearing tokens (cookies, bearer tokens,
// basic-auth headers) that might otherwise leak into a log line.
type AuthRedactor struct{}

func (r *AuthRedactor) Redact(input string) string {
	patterns := []string{
		"Cookie:",
		"Set-Cookie:",
		"Authorization:",
		"Bearer ",
		"Basic ",
	}

	result := input
	for _, pattern := range patterns {
		lower := strings.ToLower(result)
		index := strings.Index(lower, strings.ToLower(pattern))
		if index == -1 {
			continue
		}
		start := index + len(pattern)
		end := start
		for end < len(result) && result[end] != ' ' && result[end] != ';' && result[end] != '\n' && result[end] != '\r' {
			end++
		}
		if end > start {
			result = result[:start] + "[REDACTED]" + result[end:]
		}
	}
	return result
}

// URLRedactor redacts sensitive URL query parameters, including proxy
// credentials embedded in a connect-string.
type URLRedactor struct{}

func (r *URLRedactor) Redact(input string) string {
	sensitiveParams := []string{
		"access_token=",
		"token=",
		"key=",
		"secret=",
		"password=",
		"pwd=",
	}

	result := input
	for _, param := range sensitiveParams {
		lower := strings.ToLower(result)
		index := strings.Index(lower, param)
		if index == -1 {
			continue
		}
		start := index + len(param)
		end := start
		for end < len(result) && result[end] != '&' && result[end] != ' ' && result[end] != '\n' {
			end++
		}
		if end > start {
			result = result[:start] + "[REDACTED]" + result[end:]
		}
	}
	return result
}

// NewLogger constructs a Logger from Config. It opens LogFile if set, else
// writes to stderr. The caller owns the returned Logger's lifetime.
func NewLogger(cfg *Config) (*Logger, error) {
	level := ParseLogLevel(cfg.LogLevel)

	var output io.Writer = os.Stderr
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, NewValidationError("log_file", "failed to open log file").
				WithSuggestion("Check file permissions and path validity").
				WithContext("file", cfg.LogFile).
				WithContext("error", err.Error())
		}
		output = file
	}

	return newLogger(output, level, cfg.EnableDebug, cfg.QuietMode), nil
}

func newLogger(output io.Writer, level LogLevel, debug, quiet bool) *Logger {
	return &Logger{
		logger: log.New(output, "", 0),
		level:  level,
		debug:  debug,
		quiet:  quiet,
		redactors: []Redactor{
			&AuthRedactor{},
			&URLRedactor{},
		},
	}
}

// NewDefaultLogger returns a Logger writing to stderr with default levels,
// used where no Config is available yet (e.g. before flags are parsed).
func NewDefaultLogger() *Logger {
	return newLogger(os.Stderr, LogLevelInfo, false, false)
}

// With returns a child logger that stamps every line with runID. The
// parent's destination and redactors are shared; its level and flags are
// copied, so later SetLevel/SetDebug/SetQuiet calls on the parent do not
// affect the child.
func (l *Logger) With(runID string) *Logger {
	clone := *l
	clone.runID = runID
	return &clone
}

func (l *Logger) redactSensitiveData(input string) string {
	result := input
	for _, redactor := range l.redactors {
		result = redactor.Redact(result)
	}
	return result
}

func (l *Logger) formatMessage(level LogLevel, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	prefix := level.String()
	if l.runID != "" {
		prefix = fmt.Sprintf("%s run=%s", prefix, l.runID)
	}

	if l.debug {
		for depth := 3; depth <= 5; depth++ {
			_, file, line, ok := runtime.Caller(depth)
			if ok && !strings.Contains(file, "logger.go") {
				parts := strings.Split(file, "/")
				filename := parts[len(parts)-1]
				return fmt.Sprintf("[%s] %s %s:%d %s", timestamp, prefix, filename, line, message)
			}
		}
	}

	return fmt.Sprintf("[%s] %s %s", timestamp, prefix, message)
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if l.quiet && level > LogLevelError {
		return false
	}
	return level <= l.level
}

func (l *Logger) Error(format string, args ...interface{}) { l.emit(LogLevelError, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.emit(LogLevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.emit(LogLevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.emit(LogLevelDebug, format, args...) }

func (l *Logger) emit(level LogLevel, format string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}
	message := fmt.Sprintf(format, args...)
	message = l.redactSensitiveData(message)
	l.logger.Print(l.formatMessage(level, message))
}

// LogDownloadError logs a DownloadError at a level derived from its kind.
func (l *Logger) LogDownloadError(err *DownloadError) {
	switch err.Kind {
	case ConfigInvalid, ProbeFailed, AssemblyFailed, IntegrityMismatch:
		l.Error("%s", err.Error())
	case SegmentFailed:
		l.Error("%s", err.Error())
	case TransportError:
		l.Warn("%s", err.Error())
	default:
		l.Error("%s", err.Error())
	}
}

func (l *Logger) LogHTTPRequest(req *http.Request) {
	if !l.shouldLog(LogLevelDebug) {
		return
	}
	sanitizedHeaders := make(map[string]string)
	for name, values := range req.Header {
		if l.isSensitiveHeader(name) {
			sanitizedHeaders[name] = "[REDACTED]"
		} else {
			sanitizedHeaders[name] = strings.Join(values, ", ")
		}
	}
	url := l.redactSensitiveData(req.URL.String())
	l.Debug("HTTP Request: %s %s Headers: %v", req.Method, url, sanitizedHeaders)
}

func (l *Logger) LogHTTPResponse(resp *http.Response) {
	if !l.shouldLog(LogLevelDebug) {
		return
	}
	sanitizedHeaders := make(map[string]string)
	for name, values := range resp.Header {
		if l.isSensitiveHeader(name) {
			sanitizedHeaders[name] = "[REDACTED]"
		} else {
			sanitizedHeaders[name] = strings.Join(values, ", ")
		}
	}
	l.Debug("HTTP Response: %d %s Headers: %v", resp.StatusCode, resp.Status, sanitizedHeaders)
}

func (l *Logger) isSensitiveHeader(name string) bool {
	sensitiveHeaders := []string{
		"authorization",
		"cookie",
		"set-cookie",
		"x-auth-token",
		"x-api-key",
		"bearer",
		"token",
	}
	lowerName := strings.ToLower(name)
	for _, sensitive := range sensitiveHeaders {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

func (l *Logger) SetLevel(level LogLevel) { l.level = level }

func (l *Logger) SetDebug(debug bool) {
	l.debug = debug
	if debug && l.level > LogLevelDebug {
		l.level = LogLevelDebug
	}
}

func (l *Logger) SetQuiet(quiet bool) {
	l.quiet = quiet
	if quiet {
		l.level = LogLevelError
	}
}

func (l *Logger) AddRedactor(redactor Redactor) {
	l.redactors = append(l.redactors, redactor)
}
