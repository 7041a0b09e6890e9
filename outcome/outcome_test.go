package outcome_test

import (
	"testing"

	"github.com/doodle732/stateos/outcome"
)

func TestStringCoversAllValues(t *testing.T) {
	cases := map[outcome.Outcome]string{
		outcome.Success: "SUCCESS",
		outcome.Timeout: "TIMEOUT",
		outcome.Stopped: "STOPPED",
		outcome.Deleted: "DELETED",
	}
	for o, want := range cases {
		if got := o.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", o, got, want)
		}
	}
	if got := outcome.Outcome(99).String(); got != "UNKNOWN" {
		t.Errorf("unknown outcome.String() = %q, want UNKNOWN", got)
	}
}
