package cmd

import (
	"fmt"
	"os"
	"strings"

	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var _ = logrus.Hook(&writerHook{})

// writerHook mirrors every stdout log entry into the persistent log file.
type writerHook struct {
	logLevels []logrus.Level
}

func (hook *writerHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	line = strings.TrimSuffix(line, "\n")
	fileLogger.Println(line)
	return err
}

func (hook *writerHook) Levels() []logrus.Level {
	return hook.logLevels
}

var fileLogger = &logrus.Logger{
	Level: logrus.TraceLevel,
}

// ConfigurePersistentLogging adds a log-to-file writer hook to the logrus
// logger. The writer hook appends new logs to the specified log file.
func ConfigurePersistentLogging(logFileName, logFileFormatName string) error {
	logrus.WithField("logFileName", logFileName).Info("Logs will be made persistent")
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	fileLogger.SetOutput(f)

	switch logFileFormatName {
	case "text":
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		formatter.DisableColors = true
		fileLogger.SetFormatter(formatter)
	case "fluentd":
		fileLogger.SetFormatter(joonix.NewFormatter())
	case "json":
		fileLogger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log file format %v", logFileFormatName)
	}

	logrus.Info("File logger initialized")
	logrus.AddHook(&writerHook{
		logLevels: logrus.AllLevels,
	})

	return nil
}

// ConfigureLogFormat applies the selected stdout formatter. A non-empty log
// file name disables coloring so the persisted copy stays readable.
func ConfigureLogFormat(format, logFileName string) error {
	switch format {
	case "text":
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		formatter.DisableColors = logFileName != ""
		logrus.SetFormatter(formatter)
	case "fluentd":
		logrus.SetFormatter(joonix.NewFormatter())
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %s", format)
	}
	return nil
}
