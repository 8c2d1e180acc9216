package batch

import (
	"errors"
	"testing"
)

func TestAccepted(t *testing.T) {
	r := Accepted(2, "a.md")
	if r.Index() != 2 || r.Path() != "a.md" {
		t.Errorf("got index %d path %q", r.Index(), r.Path())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestRejected(t *testing.T) {
	err := errors.New("bad path")
	r := Rejected(0, "/abs.md", err)
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestReport(t *testing.T) {
	var rep Report
	if !rep.OK() {
		t.Error("empty report should be OK")
	}

	rep.Add(Accepted(0, "a.md"))
	rep.Add(Rejected(1, "", errors.New("empty path")))
	rep.Add(Accepted(2, "b.md"))

	if rep.OK() {
		t.Error("report with a rejection should not be OK")
	}
	if n := len(rep.Results()); n != 3 {
		t.Errorf("Results() len = %d, want 3", n)
	}
	rejected := rep.Rejected()
	if len(rejected) != 1 || rejected[0].Index() != 1 {
		t.Errorf("Rejected() = %+v", rejected)
	}
}
