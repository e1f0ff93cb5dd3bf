package logging

import (
	"io"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ruscigno/IndexPulse/pkg/config"
)

const (
	LevelDev  = "dev"
	LevelProd = "prod"
	LevelELK  = "elk"
)

type WriteSyncer struct {
	io.Writer
}

func (ws WriteSyncer) Sync() error {
	return nil
}

// GetWriteSyncer returns a rotating file writer.
func GetWriteSyncer(logName string) zapcore.WriteSyncer {
	var ioWriter = &lumberjack.Logger{
		Filename:   logName,
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
		LocalTime:  true,
	}
	return WriteSyncer{ioWriter}
}

// Setup builds the process logger from cfg.
func Setup(cfg config.LogConfig) *zap.Logger {
	if strings.EqualFold(cfg.Level, LevelELK) {
		cores := []zapcore.Core{elkCore(zapcore.Lock(os.Stdout), zap.InfoLevel)}
		if cfg.File != "" {
			cores = append(cores, elkCore(GetWriteSyncer(cfg.File), zap.InfoLevel))
		}
		return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	}

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	lowPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl < zapcore.ErrorLevel && lvl >= minLevel(cfg.Level)
	})

	var encCfg zapcore.EncoderConfig
	prod := strings.EqualFold(cfg.Level, LevelProd)
	if prod {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	consoleCfg := encCfg
	if !prod {
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	jsonEncoder := zapcore.NewJSONEncoder(encCfg)
	consoleEncoder := zapcore.NewConsoleEncoder(consoleCfg)
	if prod {
		// Hosted functions ship stdout to a log drain, which wants JSON.
		consoleEncoder = jsonEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), highPriority),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), lowPriority),
	}
	if cfg.File != "" {
		logFile := GetWriteSyncer(cfg.File)
		cores = append(cores,
			zapcore.NewCore(jsonEncoder, logFile, highPriority),
			zapcore.NewCore(jsonEncoder, logFile, lowPriority),
		)
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// SetupELK returns a logger writing ECS-formatted JSON to w at every level.
func SetupELK(w io.Writer) *zap.Logger {
	return zap.New(elkCore(zapcore.AddSync(w), zap.DebugLevel), zap.AddCaller())
}

func elkCore(ws zapcore.WriteSyncer, level zapcore.LevelEnabler) zapcore.Core {
	encoderConfig := ecszap.EncoderConfig{
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   ecszap.FullCallerEncoder,
	}
	return ecszap.NewCore(encoderConfig, ws, level)
}

func minLevel(level string) zapcore.Level {
	if strings.EqualFold(level, LevelProd) || strings.EqualFold(level, LevelELK) {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}
