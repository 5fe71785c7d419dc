package scale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/scaledex/internal/domain"
	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/filter"
)

func mustScale(t *testing.T, f domscale.Fields) domscale.Scale {
	t.Helper()
	s, err := domscale.New(f)
	if err != nil {
		t.Fatalf("scale.New: %v", err)
	}
	return s
}

func seed(t *testing.T, r *Repo) {
	t.Helper()
	_, err := r.Import(context.Background(), []domscale.Scale{
		mustScale(t, domscale.Fields{ID: "phq-9", NameEn: "PHQ-9", Category: "depression", Public: true, Status: domscale.StatusPublished}),
		mustScale(t, domscale.Fields{ID: "gad-7", NameEn: "GAD-7", Category: "anxiety", Public: true}),
		mustScale(t, domscale.Fields{ID: "internal", NameEn: "Internal draft", Category: "depression"}),
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
}

func TestFetch_PublicAndFacets(t *testing.T) {
	r := New(newMockStore())
	seed(t, r)

	all, err := r.Fetch(context.Background(), filter.Facets{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("Fetch() = %d scales, want 2 public", len(all))
	}

	f, _ := filter.New(filter.Spec{Categories: []string{"Depression"}})
	dep, err := r.Fetch(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if len(dep) != 1 || dep[0].ID() != "phq-9" {
		t.Errorf("Fetch(depression) = %v", dep)
	}
}

func TestFetch_Snapshot(t *testing.T) {
	st := newMockStore()
	r := New(st, WithSnapshotTTL(time.Minute))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	seed(t, r)

	for range 3 {
		if _, err := r.Fetch(context.Background(), filter.Facets{}); err != nil {
			t.Fatal(err)
		}
	}
	if st.scanCalls != 1 {
		t.Errorf("scanCalls = %d, want 1 while the snapshot is fresh", st.scanCalls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := r.Fetch(context.Background(), filter.Facets{}); err != nil {
		t.Fatal(err)
	}
	if st.scanCalls != 2 {
		t.Errorf("scanCalls = %d, want reload after TTL", st.scanCalls)
	}

	if err := r.Delete(context.Background(), "phq-9"); err != nil {
		t.Fatal(err)
	}
	n, _ := r.Count(context.Background())
	if n != 1 {
		t.Errorf("Count() after delete = %d, want 1", n)
	}
}

func TestFetch_SkipsUnreadable(t *testing.T) {
	st := newMockStore()
	st.docs[keyPrefix+"broken"] = []byte(`{"id":"broken"}`) // no name
	st.docs[keyPrefix+"ok"] = []byte(`{"id":"ok","name":"量表"}`)

	got, err := New(st).Fetch(context.Background(), filter.Facets{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID() != "ok" || !got[0].IsPublic() {
		t.Errorf("Fetch() = %v, want the readable scale only, public by default", got)
	}
}

func TestFetch_ScanError(t *testing.T) {
	st := newMockStore()
	st.scanErr = errors.New("conn refused")
	if _, err := New(st).Fetch(context.Background(), filter.Facets{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet(t *testing.T) {
	r := New(newMockStore())
	seed(t, r)

	s, err := r.Get(context.Background(), "internal")
	if err != nil {
		t.Fatal(err)
	}
	if s.IsPublic() || s.NameEn() != "Internal draft" {
		t.Errorf("Get() = %+v", s.Fields())
	}

	if _, err := r.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestImport_Batches(t *testing.T) {
	st := newMockStore()
	r := New(st)
	scales := make([]domscale.Scale, 250)
	for i := range scales {
		scales[i] = mustScale(t, domscale.Fields{ID: fmt.Sprintf("s-%03d", i), Name: "n"})
	}
	n, err := r.Import(context.Background(), scales)
	if err != nil {
		t.Fatal(err)
	}
	if n != 250 || len(st.docs) != 250 {
		t.Errorf("written = %d, stored = %d", n, len(st.docs))
	}
}

func TestImport_Error(t *testing.T) {
	st := newMockStore()
	st.setErr = errors.New("READONLY")
	r := New(st)
	_, err := r.Import(context.Background(), []domscale.Scale{mustScale(t, domscale.Fields{ID: "a", Name: "a"})})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeCatalog(t *testing.T) {
	in := `[
		{"id":"phq-9","name":"患者健康问卷","acronym":"PHQ-9","validation_status":"published","usage_count":120},
		{"id":"bad id!","name":"x"},
		{"id":"phq-9","name":"dup"},
		{"id":"hidden","name_en":"Hidden","public":false}
	]`
	scales, err := DecodeCatalog(strings.NewReader(in))
	if !errors.Is(err, domain.ErrInvalidScale) {
		t.Errorf("err = %v, want ErrInvalidScale for the bad records", err)
	}
	if len(scales) != 2 {
		t.Fatalf("decoded %d scales, want 2", len(scales))
	}
	if scales[0].Status() != domscale.StatusPublished || !scales[0].IsPublic() {
		t.Errorf("first = %+v", scales[0].Fields())
	}
	if scales[1].IsPublic() {
		t.Error("explicit public=false must be kept")
	}
}

func TestDecodeCatalog_Malformed(t *testing.T) {
	if _, err := DecodeCatalog(strings.NewReader(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestToDoc_RoundTrip(t *testing.T) {
	s := mustScale(t, domscale.Fields{ID: "a", Name: "甲", Public: false, Embedding: []float32{0.5}})
	d := ToDoc(&s)
	back, err := d.Scale()
	if err != nil {
		t.Fatal(err)
	}
	if back.IsPublic() || len(back.Embedding()) != 1 {
		t.Errorf("round trip = %+v", back.Fields())
	}
}
