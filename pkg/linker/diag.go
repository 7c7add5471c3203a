package linker

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Diag is the diagnostic sink for the link. Fatal errors log and call the
// exit hook; semantic errors log and mark the link failed so the driver can
// report a non-zero status after finishing.
type Diag struct {
	logger log.Logger
	exit   func(int)
	errors int
}

func NewDiag(logger log.Logger) *Diag {
	if logger == nil {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}
	return &Diag{
		logger: logger,
		exit:   os.Exit,
	}
}

// SetExit replaces the process-exit hook. Tests use this to observe fatal
// paths without dying.
func (d *Diag) SetExit(exit func(int)) {
	d.exit = exit
}

func (d *Diag) Fatalf(format string, args ...any) {
	level.Error(d.logger).Log("msg", fmt.Sprintf(format, args...), "fatal", true)
	d.errors++
	d.exit(1)
}

func (d *Diag) Errorf(format string, args ...any) {
	level.Error(d.logger).Log("msg", fmt.Sprintf(format, args...))
	d.errors++
}

func (d *Diag) Warnf(format string, args ...any) {
	level.Warn(d.logger).Log("msg", fmt.Sprintf(format, args...))
}

// Failed reports whether any error has been recorded.
func (d *Diag) Failed() bool {
	return d.errors > 0
}
