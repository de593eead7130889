package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestKeyBackground_ToleranceZeroKeysNothing(t *testing.T) {
	img := createNoiseImage(16, 16)

	result, err := KeyBackground(img, img.NRGBAAt(3, 3), 0)
	if err != nil {
		t.Fatalf("KeyBackground failed: %v", err)
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if got, want := result.NRGBAAt(x, y), img.NRGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestKeyBackground_WhiteBlackScenario(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	white := color.NRGBA{255, 255, 255, 255}
	black := color.NRGBA{0, 0, 0, 255}
	img.SetNRGBA(0, 0, white)
	img.SetNRGBA(1, 0, black)
	img.SetNRGBA(0, 1, black)
	img.SetNRGBA(1, 1, white)

	result, err := KeyBackground(img, white, 10)
	if err != nil {
		t.Fatalf("KeyBackground failed: %v", err)
	}

	tests := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, color.NRGBA{255, 255, 255, 0}},
		{1, 0, black},
		{0, 1, black},
		{1, 1, color.NRGBA{255, 255, 255, 0}},
	}
	for _, tt := range tests {
		if got := result.NRGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d): got %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestKeyBackground_StrictComparison(t *testing.T) {
	bg := color.NRGBA{100, 100, 100, 255}

	tests := []struct {
		name      string
		pixel     color.NRGBA
		tolerance int
		keyed     bool
	}{
		{"exact match tolerance 1", color.NRGBA{100, 100, 100, 255}, 1, true},
		{"off by one tolerance 1", color.NRGBA{101, 100, 100, 255}, 1, false},
		{"difference equals tolerance", color.NRGBA{110, 100, 100, 255}, 10, false},
		{"difference below tolerance", color.NRGBA{109, 91, 100, 255}, 10, true},
		{"one channel outside", color.NRGBA{100, 100, 120, 255}, 10, false},
		{"semi transparent match", color.NRGBA{100, 100, 100, 40}, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
			img.SetNRGBA(0, 0, tt.pixel)

			result, err := KeyBackground(img, bg, tt.tolerance)
			if err != nil {
				t.Fatalf("KeyBackground failed: %v", err)
			}
			got := result.NRGBAAt(0, 0)
			if tt.keyed && got.A != 0 {
				t.Errorf("pixel %v should be keyed, alpha = %d", tt.pixel, got.A)
			}
			if !tt.keyed && got != tt.pixel {
				t.Errorf("pixel %v should be unchanged, got %v", tt.pixel, got)
			}
			if Matches(tt.pixel, bg, tt.tolerance) != tt.keyed {
				t.Errorf("Matches disagrees with KeyBackground for %v", tt.pixel)
			}
		})
	}
}

func TestKeyBackground_KeyedIffWithinTolerance(t *testing.T) {
	img := createNoiseImage(32, 32)
	bg := color.NRGBA{120, 130, 140, 255}
	const tolerance = 60

	result, err := KeyBackground(img, bg, tolerance)
	if err != nil {
		t.Fatalf("KeyBackground failed: %v", err)
	}

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			src := img.NRGBAAt(x, y)
			got := result.NRGBAAt(x, y)
			if got.R != src.R || got.G != src.G || got.B != src.B {
				t.Fatalf("RGB changed at (%d,%d): %v -> %v", x, y, src, got)
			}
			within := absInt(int(src.R)-120) < tolerance &&
				absInt(int(src.G)-130) < tolerance &&
				absInt(int(src.B)-140) < tolerance
			if within && got.A != 0 {
				t.Fatalf("pixel (%d,%d) %v within tolerance but alpha %d", x, y, src, got.A)
			}
			if !within && got.A != src.A {
				t.Fatalf("pixel (%d,%d) %v outside tolerance but alpha changed to %d", x, y, src, got.A)
			}
		}
	}
}

func TestKeyBackground_InvalidParameters(t *testing.T) {
	img := createNoiseImage(4, 4)

	if _, err := KeyBackground(img, color.White, -1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative tolerance: error = %v, want ErrInvalidParameter", err)
	}
	if _, err := KeyBackground(img, nil, 5); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("nil background: error = %v, want ErrInvalidParameter", err)
	}
	if _, err := KeyBackground(nil, color.White, 5); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("nil image: error = %v, want ErrInvalidParameter", err)
	}
}

func TestKeyBackground_DoesNotModifySource(t *testing.T) {
	img := createInMemoryImage(4, 4, color.RGBA{255, 255, 255, 255})

	if _, err := KeyBackground(img, color.White, 10); err != nil {
		t.Fatalf("KeyBackground failed: %v", err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0xffff {
		t.Error("KeyBackground modified its input")
	}
}
