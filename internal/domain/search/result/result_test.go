package result

import (
	"testing"

	"github.com/kailas-cloud/scaledex/internal/domain/scale"
)

func TestNew(t *testing.T) {
	s := scale.Reconstruct(scale.Fields{ID: "phq-9", Name: "PHQ-9"})
	reasons := []string{"acronym exact match"}

	r := New(&s, 100, 30, VectorScore{Value: 0.8, Present: true}, 120, reasons)

	if r.Scale() != &s {
		t.Error("Scale() must reference the candidate, not a copy")
	}
	if r.Keyword() != 100 || r.Semantic() != 30 || r.Fused() != 120 {
		t.Errorf("scores = %v/%v/%v", r.Keyword(), r.Semantic(), r.Fused())
	}
	if !r.Vector().Present || r.Vector().Value != 0.8 {
		t.Errorf("Vector() = %+v", r.Vector())
	}
	if len(r.Reasons()) != 1 {
		t.Errorf("Reasons() = %v", r.Reasons())
	}
}

func TestAbsent(t *testing.T) {
	if Absent.Present || Absent.Value != 0 {
		t.Errorf("Absent = %+v, want zero", Absent)
	}
}
