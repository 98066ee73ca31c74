package permission

// Status is the platform screen-capture permission state.
type Status int

const (
	// NotApplicable means the platform exposes no distinguishable
	// screen-capture permission. Treated as granted for scheduling.
	NotApplicable Status = iota

	// Granted means the user has approved screen capture.
	Granted

	// Denied means the user has rejected screen capture.
	Denied

	// Undetermined means the platform could not report a definite state.
	Undetermined
)

// String returns the lowerCamel form used in status snapshots and logs.
func (s Status) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case Undetermined:
		return "undetermined"
	default:
		return "notApplicable"
	}
}

// Allowed reports whether capture is expected to succeed in this state.
func (s Status) Allowed() bool {
	return s == Granted || s == NotApplicable
}

// Check reports the current screen-capture permission state.
//
// The result is advisory: the pipeline attempts capture regardless of the
// outcome, because on some platforms the capture call itself is what raises
// the permission prompt.
func Check() Status {
	return check()
}
