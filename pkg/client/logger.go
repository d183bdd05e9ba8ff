package client

import (
	"fmt"

	"github.com/umisama/go-regexpcache"
	"go.uber.org/zap"
)

const LoggerPrefix = "HTTP%s\t"

// Logger implements resty.Logger, all messages are logged with the debug level and secrets are hidden.
type Logger struct {
	logger *zap.SugaredLogger
}

func NewLogger(logger *zap.SugaredLogger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logWithoutSecrets("", format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logWithoutSecrets("-WARN", format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logWithoutSecrets("-ERROR", format, v...)
}

func (l *Logger) logWithoutSecrets(level string, format string, v ...interface{}) {
	v = append([]interface{}{level}, v...)
	msg := fmt.Sprintf(LoggerPrefix+format, v...)
	msg = regexpcache.MustCompile(`(?i)(authorization\s*:?\s*)[^\s]+(\s+[^\s]+)?`).ReplaceAllString(msg, "$1*****")
	msg = regexpcache.MustCompile(`(?i)((?:password|token)=)[^&\s,]+`).ReplaceAllString(msg, "$1*****")
	msg = regexpcache.MustCompile(`(://[^:@/\s]+:)[^@/\s]+@`).ReplaceAllString(msg, "$1*****@")
	l.logger.Debug(msg)
}
