//go:build windows

package yallasignal

import "os"

// Windows has no SIGTERM, so os.Interrupt stands in for it. Because the
// two are the same signal here, the dispatcher records every delivery
// as Interrupt; Terminate is never raised by the OS on Windows.
var terminateSignal os.Signal = os.Interrupt

const platformSupportsSignals = true
