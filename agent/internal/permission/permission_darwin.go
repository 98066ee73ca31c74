//go:build darwin

package permission

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>
*/
import "C"

// check queries the TCC screen-recording preflight. The preflight never
// raises the permission prompt; CGRequestScreenCaptureAccess does, and the
// capture attempt itself triggers it on first use, so this stays read-only.
func check() Status {
	if C.CGPreflightScreenCaptureAccess() {
		return Granted
	}
	return Denied
}
