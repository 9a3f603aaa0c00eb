package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup создает логгер. Неизвестный уровень заменяется на info.
func Setup(level, format string) *logrus.Logger {
	logger := &logrus.Logger{
		Formatter: &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyLevel: "loglevel",
			},
		},
		Out:   os.Stdout,
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}

	if strings.EqualFold(format, "text") {
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.Level = lvl
	}
	return logger
}
