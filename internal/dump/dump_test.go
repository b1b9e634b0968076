package dump

import (
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/interest"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/pkg/types"
)

func sampleInterest() *interest.Interest {
	model := interest.NewModel(16, 8, 2)
	model.EstimateInterest(interest.NewFrame(16, 8))
	f := interest.NewFrame(16, 8)
	f.Fill(255)
	return model.EstimateInterest(f)
}

func TestWriteNamesFileByMillis(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 0, nil)
	w.now = func() time.Time { return time.UnixMilli(1700000000123) }

	path, err := w.Write(sampleInterest())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := filepath.Join(dir, "original-1700000000123.jpeg"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("dump bounds = %v", b)
	}
}

func TestWriteSurfacesErrors(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "does", "not", "exist"), 0, nil)
	if _, err := w.Write(sampleInterest()); err == nil {
		t.Fatal("expected write error")
	}
}

func TestHandleCountsFailures(t *testing.T) {
	m := metrics.New()
	w := NewWriter(filepath.Join(t.TempDir(), "missing"), 0.5, m)
	res := sampleInterest()

	w.Handle(&types.Observation{Interest: res, Event: types.InterestEvent{Score: 0.1}})
	if m.DumpErrors.Load() != 0 {
		t.Fatal("below-threshold frame was dumped")
	}

	w.Handle(&types.Observation{Interest: res, Event: types.InterestEvent{Score: 1}})
	if m.DumpErrors.Load() != 1 {
		t.Fatalf("DumpErrors = %d, want 1", m.DumpErrors.Load())
	}
}
