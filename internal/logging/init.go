package logging

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func callerPrettyfier(f *runtime.Frame) (string, string) {
	return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

// Init configures the global logger from viper: log_format picks text or
// json, debug/verbose or log-level pick the level.
func Init() {
	switch viper.GetString("log_format") {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  "2006-01-02T15:04:05.000Z07:00",
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:     true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				fn, file := callerPrettyfier(f)
				return fn, " " + file
			},
		})
	}
	logrus.SetReportCaller(true)

	level, err := Level()
	if err != nil {
		logrus.Fatalf("parsing log level: %v", err)
	}
	logrus.SetLevel(level)
}

func Level() (logrus.Level, error) {
	switch {
	case viper.GetBool("debug") || viper.GetBool("verbose"):
		return logrus.DebugLevel, nil
	case viper.GetString("log-level") != "":
		return logrus.ParseLevel(viper.GetString("log-level"))
	default:
		return logrus.InfoLevel, nil
	}
}
