package logging

import (
	"io"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/2beens/fittrack/pkg"
)

const maxLogFileSizeMB = 50

// Params configures the process-wide logrus logger.
type Params struct {
	Level string
	JSON  bool
	// File is rotated by lumberjack; empty keeps logs on Output only.
	File string
	// Output receives logs when File is empty, and alongside it when TeeFile is set. Defaults to stdout.
	Output  io.Writer
	TeeFile bool
	// SentryDSN enables error reporting when set.
	SentryDSN   string
	Environment string
	ServerName  string
}

func Setup(params Params) {
	if params.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetLevel(ParseLevel(params.Level))

	if params.SentryDSN != "" {
		setupSentry(params)
	}

	output := params.Output
	if output == nil {
		output = os.Stdout
	}
	if params.File == "" {
		logrus.SetOutput(output)
		return
	}

	fileName := params.File
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	rotated := &lumberjack.Logger{
		Filename: fileName,
		MaxSize:  maxLogFileSizeMB,
		Compress: true,
	}

	if params.TeeFile {
		logrus.SetOutput(pkg.NewCombinedWriter(output, rotated))
	} else {
		logrus.SetOutput(rotated)
	}
	logrus.Debugf("writing logs to [%s]", fileName)
}

func setupSentry(params Params) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         params.SentryDSN,
		Environment: params.Environment,
		ServerName:  params.ServerName,
	})
	if err != nil {
		logrus.Errorf("sentry init: %s", err)
		return
	}
	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
}

// ParseLevel maps a config level name to logrus, falling back to info.
func ParseLevel(level string) logrus.Level {
	l, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}
