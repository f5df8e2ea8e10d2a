// Package klog is the structured-logging ambient stack: every
// diagnostic that is not on the hot fault/syscall path goes through a
// *logrus.Logger here, with fields for thread id, Vessel id, and
// subsystem name instead of ad-hoc fmt.Printf strings. The handful of
// genuinely interrupt-context call sites (the entry trampoline, the
// panic path) keep direct, allocation-free console writes instead:
// logrus allocates and is not safe to call from there.
package klog

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.Mutex
	log = newDefault()
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetOutput(os.Stderr)
	return l
}

// Configure replaces the default logger's output, fanning diagnostics
// out to every writer given (the VGA console and the COM1 serial
// writer, per §6 Console, once those exist; os.Stderr stands in for
// hosted tests and tools).
func Configure(writers ...io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if len(writers) == 0 {
		log.SetOutput(os.Stderr)
		return
	}
	log.SetOutput(io.MultiWriter(writers...))
}

// Logger returns the shared kernel logger, for callers that want to
// chain WithField/WithFields themselves.
func Logger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log
}

// For builds the standard per-event field set: thread id, Vessel id,
// and subsystem name. Either id may be zero when not applicable.
func For(subsystem string, tid uint64, vesselID uint64) *logrus.Entry {
	return Logger().WithFields(logrus.Fields{
		"subsystem": subsystem,
		"tid":       tid,
		"vessel":    vesselID,
	})
}
