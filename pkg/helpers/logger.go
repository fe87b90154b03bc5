package helpers

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the process logger. Development gets readable text at
// debug level; every other env gets JSON at info. LOG_LEVEL overrides the level.
// Every entry carries app and env.
func NewLogger(appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	level := logrus.InfoLevel
	if env == "development" {
		level = logrus.DebugLevel
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	logger.SetLevel(level)
	logger.AddHook(staticFields{"app": appName, "env": env})
	logger.WithField("level", level.String()).Info("logger initialized")
	return logger
}

// staticFields stamps fixed fields on every entry that does not already set them.
type staticFields logrus.Fields

func (staticFields) Levels() []logrus.Level { return logrus.AllLevels }

func (f staticFields) Fire(e *logrus.Entry) error {
	for k, v := range f {
		if _, ok := e.Data[k]; !ok {
			e.Data[k] = v
		}
	}
	return nil
}

// LogError logs msg at error level with err and fields.
func LogError(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	entry := logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func LogInfo(logger *logrus.Logger, msg string, fields logrus.Fields) {
	logger.WithFields(fields).Info(msg)
}
