package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu sync.RWMutex
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// InitProduction 初始化 JSON 格式的 production logger
func InitProduction(level string) error {
	return initWith(zap.NewProductionConfig(), level)
}

// InitDevelopment 初始化控制台友好的 development logger
func InitDevelopment(level string) error {
	return initWith(zap.NewDevelopmentConfig(), level)
}

func initWith(cfg zap.Config, level string) error {
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("无效的日志级别 %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set 替换当前 logger, 同时替换 zap 全局 (zap.L()/zap.S() 返回相同实例)
func Set(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	zap.ReplaceGlobals(l)
	if log != nil {
		_ = log.Sync()
	}
	log = l
	sugar = l.Sugar()
}

// Log 返回 *zap.Logger（非 nil）
func Log() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		return log
	}
	// 未初始化时返回 zap 的全局 (默认 noop)
	return zap.L()
}

// S 返回 *zap.SugaredLogger（非 nil）
func S() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	if sugar != nil {
		return sugar
	}
	return zap.S()
}

// Sync flush logs
func Sync() {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		_ = log.Sync()
	}
}
