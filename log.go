package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type logConfig struct {
	level      string
	file       string
	maxSize    int // megabytes
	maxBackups int
	silent     bool
}

// initLog configures the global logrus logger. Silent mode only lets errors
// through; a log file is rotated by lumberjack.
func initLog(cfg logConfig) {
	level, err := logrus.ParseLevel(cfg.level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.silent && level > logrus.ErrorLevel {
		level = logrus.ErrorLevel
	}
	logrus.SetLevel(level)

	var out io.Writer = os.Stderr
	if cfg.file != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.file,
			MaxSize:    cfg.maxSize,
			MaxBackups: cfg.maxBackups,
			MaxAge:     7, // days
		}
	}
	logrus.SetOutput(out)
}
