package log

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugOutput collects messages of the debug logger, it is safe for concurrent use.
type DebugOutput struct {
	lock   sync.Mutex
	buffer bytes.Buffer
}

func (o *DebugOutput) Write(p []byte) (int, error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.buffer.Write(p)
}

func (o *DebugOutput) Sync() error {
	return nil
}

func (o *DebugOutput) String() string {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.buffer.String()
}

// Lines returns logged messages without the trailing new line.
func (o *DebugOutput) Lines() []string {
	str := strings.TrimRight(o.String(), "\n")
	if str == "" {
		return nil
	}
	return strings.Split(str, "\n")
}

func (o *DebugOutput) Truncate() {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.buffer.Reset()
}

// NewDebugLogger logs all levels to the returned output, for tests.
func NewDebugLogger() (*zap.SugaredLogger, *DebugOutput) {
	out := &DebugOutput{}
	encoderConfig := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: "  ",
	}
	logger := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		out,
		zapcore.DebugLevel,
	))
	return logger.Sugar(), out
}
