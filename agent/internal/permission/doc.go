// Package permission implements the capability gate: a read-only query of the
// platform's screen-capture permission state.
//
// On macOS, Check calls CGPreflightScreenCaptureAccess via cgo and reports
// Granted or Denied. Every other platform reports NotApplicable, which the
// pipeline treats as granted. The result is advisory: capture is attempted
// regardless, because the platform capture call may itself raise the
// permission prompt and succeed afterwards.
package permission
