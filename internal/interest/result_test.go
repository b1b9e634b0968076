package interest

import "testing"

func TestThresholdIsStrictAndOneSided(t *testing.T) {
	tests := []struct {
		name     string
		original float32
		mean     float32
		want     uint8
	}{
		{"well above", 100, 50, DefaultMaskWeight},
		{"just above", 125.5, 100, DefaultMaskWeight},
		{"exactly cutoff", 125, 100, 0},
		{"below cutoff", 110, 100, 0},
		{"darkening", 0, 200, 0},
		{"equal", 42, 42, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewInterest(constFrame(1, 1, tt.original), constFrame(1, 1, tt.mean))
			mask := res.Threshold()
			for i, v := range mask.Pix {
				if v != tt.want {
					t.Fatalf("mask[%d] = %d, want %d", i, v, tt.want)
				}
			}
		})
	}
}

func TestOverallMatchesThresholdCount(t *testing.T) {
	// 2x2 frame; the two top-row pixels brighten on every channel.
	original := NewFrame(2, 2)
	mean := NewFrame(2, 2)
	for c := 0; c < Channels; c++ {
		original.Set(c, 0, 0, 200)
		original.Set(c, 0, 1, 200)
		original.Set(c, 1, 0, 10)
		mean.Set(c, 1, 1, 90) // darkening, must not count
	}

	res := NewInterest(original, mean)
	if got := res.Overall(); got != 0.5 {
		t.Fatalf("Overall = %v, want 0.5", got)
	}
	mask := res.Threshold()
	want := float64(mask.NonZero()) / float64(Channels*2*2)
	if res.Overall() != want {
		t.Fatalf("Overall = %v, mask ratio = %v", res.Overall(), want)
	}
	if res.Exceeding() != 6 {
		t.Fatalf("Exceeding = %d, want 6", res.Exceeding())
	}
}

func TestResultIsIdempotent(t *testing.T) {
	m := NewModel(3, 3, 2)
	m.EstimateInterest(constFrame(3, 3, 0))
	f := constFrame(3, 3, 0)
	f.Set(0, 1, 1, 255)
	f.Set(2, 2, 0, 255)
	res := m.EstimateInterest(f)

	first := res.Threshold()
	score := res.Overall()
	for i := 0; i < 3; i++ {
		again := res.Threshold()
		if again == first {
			t.Fatal("Threshold must allocate a new mask")
		}
		for j := range first.Pix {
			if again.Pix[j] != first.Pix[j] {
				t.Fatalf("mask[%d] changed between calls", j)
			}
		}
		if res.Overall() != score {
			t.Fatalf("Overall changed between calls")
		}
	}
	if score != 2.0/27.0 {
		t.Fatalf("Overall = %v, want 2/27", score)
	}
}

func TestMaskImageRollsChannelsLast(t *testing.T) {
	mask := NewMask(2, 1)
	// channel-major: R plane, G plane, B plane
	copy(mask.Pix, []uint8{10, 0, 0, 10, 10, 10})
	img := mask.Image()
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 1 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	want := [][4]uint8{{10, 0, 10, 255}, {0, 10, 10, 255}}
	for x, px := range want {
		o := img.PixOffset(x, 0)
		for k := 0; k < 4; k++ {
			if img.Pix[o+k] != px[k] {
				t.Fatalf("pixel %d component %d = %d, want %d", x, k, img.Pix[o+k], px[k])
			}
		}
	}
}

func TestNewInterestPanicsOnShapeMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewInterest(NewFrame(2, 2), NewFrame(2, 3))
}
