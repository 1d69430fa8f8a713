package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/moffa90/go-fwhub/fwhub"
)

var _ fwhub.Logger = (*logrusLogger)(nil)

// logrusLogger adapts a logrus logger to fwhub.Logger.
type logrusLogger struct {
	log *logrus.Logger
}

func newLogger(out io.Writer, verbose bool) *logrusLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return &logrusLogger{log: l}
}

func (l *logrusLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Info(msg)
}

func (l *logrusLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Error(msg)
}

// fields pairs up keys and values. A trailing key without a value is kept
// under "extra".
func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	if len(kv)%2 != 0 {
		f["extra"] = kv[len(kv)-1]
	}
	return f
}
