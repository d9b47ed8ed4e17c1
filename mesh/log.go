package mesh

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the package logger, nil restores the logrus standard logger
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	log = l
}

// Logger returns the package logger
func Logger() logrus.FieldLogger { return log }
