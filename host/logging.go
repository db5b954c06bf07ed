package host

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the logrus.Entry every Compile/Exec call site threads
// through as its log parameter. verbose raises the level to Debug (what
// Config.JITLog gates); otherwise only warnings and errors are reported.
// Fields follow logrus's usual text formatter rather than JSON — this is
// a CLI tool, not a service emitting to a log aggregator.
func NewLogger(verbose bool) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.WarnLevel)
	}
	return l.WithField("component", "amxjit")
}
