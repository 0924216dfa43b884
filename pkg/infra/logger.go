package infra

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Allow changing log level at run time.
	LoggerLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

const (
	ConsoleEncoding = "console"
	JsonEncoding    = "json"
)

type LoggerOptions struct {
	// console for a terminal next to the kiosk, json when logs are shipped.
	Encoding   string
	OutputPath string
	Debug      bool
}

type LoggerFactory struct {
	baseLogger *zap.Logger
}

func (f *LoggerFactory) Create(name string) *zap.Logger {
	return f.baseLogger.Named(name)
}

func (f *LoggerFactory) Sync() error {
	return f.baseLogger.Sync()
}

// NewLoggerFactory wraps an existing logger, tests pass zaptest loggers here.
func NewLoggerFactory(baseLogger *zap.Logger) *LoggerFactory {
	return &LoggerFactory{
		baseLogger: baseLogger,
	}
}

// NewLogger builds the process logger. Its level is LoggerLevel, so
// PUT /debug keeps working whatever level it starts at.
func NewLogger(options LoggerOptions) (*zap.Logger, error) {
	if options.Debug {
		LoggerLevel.SetLevel(zapcore.DebugLevel)
	}

	encodeLevel := zapcore.CapitalColorLevelEncoder
	if options.Encoding == JsonEncoding {
		encodeLevel = zapcore.CapitalLevelEncoder
	}

	cfg := zap.Config{
		Level:            LoggerLevel,
		Encoding:         options.Encoding,
		OutputPaths:      []string{options.OutputPath},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "name",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	logger.Sugar().Infof("logger created encoding[%v] level[%v]", options.Encoding, LoggerLevel.Level())
	return logger, nil
}
