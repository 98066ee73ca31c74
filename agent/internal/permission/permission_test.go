package permission

import "testing"

func TestStatusString(t *testing.T) {
	cases := []struct {
		status Status
		want   string
	}{
		{NotApplicable, "notApplicable"},
		{Granted, "granted"},
		{Denied, "denied"},
		{Undetermined, "undetermined"},
		{Status(99), "notApplicable"},
	}
	for _, c := range cases {
		if got := c.status.String(); got != c.want {
			t.Errorf("Status(%d).String() = %q, want %q", int(c.status), got, c.want)
		}
	}
}

func TestAllowed(t *testing.T) {
	if !NotApplicable.Allowed() {
		t.Error("NotApplicable.Allowed() = false, want true")
	}
	if !Granted.Allowed() {
		t.Error("Granted.Allowed() = false, want true")
	}
	if Denied.Allowed() {
		t.Error("Denied.Allowed() = true, want false")
	}
	if Undetermined.Allowed() {
		t.Error("Undetermined.Allowed() = true, want false")
	}
}

func TestCheckReturnsValidStatus(t *testing.T) {
	switch s := Check(); s {
	case NotApplicable, Granted, Denied, Undetermined:
	default:
		t.Errorf("Check() returned unknown status %d", int(s))
	}
}
