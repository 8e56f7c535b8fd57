package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging sets the global logrus formatter and level.  prod
// logs JSON; other environments log text.
func ConfigureLogging(env, level string) {
	if env == "prod" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
