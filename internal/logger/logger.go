package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger settings. LogFile receives the full debug stream;
// the console shows info and above.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`
	DevMode  bool   `env:"LOGGER_DEV_MODE" envDefault:"false"`
	LogFile  string `env:"LOG_FILE" envDefault:"transfer.log"`
}

// Logger is the logging surface used across the application.
type Logger interface {
	InitLogger()
	Logger() *zap.Logger
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	Sync() error
}

type AppLogger struct {
	cfg         *Config
	logger      *zap.Logger
	sugarLogger *zap.SugaredLogger
}

func NewAppLogger(cfg *Config) *AppLogger {
	if cfg == nil {
		cfg = &Config{}
	}
	return &AppLogger{cfg: cfg}
}

var loggerLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"fatal": zapcore.FatalLevel,
}

func (l *AppLogger) getLoggerLevel() zapcore.Level {
	level, exist := loggerLevelMap[l.cfg.LogLevel]
	if !exist {
		return zapcore.DebugLevel
	}
	return level
}

// InitLogger builds the two-core zap logger: file at debug and above,
// console at info and above. A broken log file degrades to console-only.
func (l *AppLogger) InitLogger() {
	fileLevel := l.getLoggerLevel()

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if l.cfg.DevMode {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zapcore.InfoLevel),
	}

	if l.cfg.LogFile != "" {
		file, err := os.OpenFile(l.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			os.Stderr.WriteString("Warning: could not create log file '" + l.cfg.LogFile + "': " + err.Error() + "\n")
		} else {
			fileEncoderCfg := zap.NewProductionEncoderConfig()
			fileEncoderCfg.TimeKey = "timestamp"
			fileEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
			fileEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
			fileEncoder := zapcore.NewConsoleEncoder(fileEncoderCfg)
			cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(file), fileLevel))
		}
	}

	l.logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	l.sugarLogger = l.logger.Sugar()
}

func (l *AppLogger) Logger() *zap.Logger {
	return l.logger
}

func (l *AppLogger) Debugf(template string, args ...interface{}) {
	l.sugarLogger.Debugf(template, args...)
}

func (l *AppLogger) Infof(template string, args ...interface{}) {
	l.sugarLogger.Infof(template, args...)
}

func (l *AppLogger) Warnf(template string, args ...interface{}) {
	l.sugarLogger.Warnf(template, args...)
}

func (l *AppLogger) Errorf(template string, args ...interface{}) {
	l.sugarLogger.Errorf(template, args...)
}

func (l *AppLogger) Fatalf(template string, args ...interface{}) {
	l.sugarLogger.Fatalf(template, args...)
}

func (l *AppLogger) Sync() error {
	if l.logger == nil {
		return nil
	}
	return l.logger.Sync()
}
