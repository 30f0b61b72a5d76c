package driver

import (
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// rejectionStormThreshold is the number of consecutive rejected attempts
// within one Iterate call after which a driver logs a warning: ordinary
// adaptive retries are silent, a long run of them is worth a record.
const rejectionStormThreshold = 10

// DriverLogInit builds the structured logger attached to a driver,
// following the same shape as smd's SCLogInit: a logfmt logger on
// stdout, tagged with the driver's name.
func DriverLogInit(name string) kitlog.Logger {
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	return kitlog.With(klog, "driver", name)
}

// noopLogger discards every record; it is the default so a driver never
// needs a nil check on its hot path.
type noopLogger struct{}

func (noopLogger) Log(...interface{}) error { return nil }
