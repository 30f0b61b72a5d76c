package spacehub

import "fmt"

// Fault is a fatal, unrecoverable condition raised by the core: an iteration
// budget exhausted, an unexpected table index, an invalid orbit. Fatal
// conditions panic with a *Fault rather than a bare string so a caller can
// recover and errors.As it.
type Fault struct {
	Subsystem string
	Message   string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("[spacehub:%s] %s", f.Subsystem, f.Message)
}

func newFault(subsystem, format string, args ...interface{}) *Fault {
	return &Fault{Subsystem: subsystem, Message: fmt.Sprintf(format, args...)}
}

// Abort panics with a *Fault tagged with subsystem. Used by the drivers for
// fatal conditions: iteration-budget exhaustion and contract violations.
// Step rejection is never reported this way — it is recovered locally by
// the driver.
func Abort(subsystem, format string, args ...interface{}) {
	panic(newFault(subsystem, format, args...))
}
