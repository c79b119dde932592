package region

import (
	"io"
	"log"
	"os"
)

// Option configures a File constructed by Open.
type Option func(*File)

// WithLogger overrides the default logger used for tolerated anomalies (an
// out-of-range header slot found by Open). Passing nil installs
// a discard logger, for callers that want anomalies silenced entirely.
func WithLogger(l *log.Logger) Option {
	return func(f *File) {
		if l == nil {
			l = log.New(io.Discard, "", log.LstdFlags)
		}
		f.logger = l
	}
}

func defaultLogger() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}
