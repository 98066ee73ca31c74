//go:build !darwin

package permission

// check reports NotApplicable: neither Windows nor X11 exposes a queryable
// screen-capture permission.
func check() Status {
	return NotApplicable
}
