// Package obslog configures the process-wide logrus logger.
//
// The upstream MCP session is framed JSON over this process's stdout, so
// every diagnostic line must go to stderr. Writing a stray log line to
// stdout would corrupt the wire stream for whatever client is talking to
// us, so Setup never touches os.Stdout.
package obslog

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Setup configures the package-level logrus logger for the given level
// name (error, warn, info, debug). An invalid level falls back to info.
func Setup(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("invalid log level %q, using info", level)
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetOutput(os.Stderr)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}
}
