package selector

import (
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"tyiler/internal/imageutils"
	"tyiler/internal/logger"
)

func writePNG(t *testing.T, fs afero.Fs, path string, w, h int) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	file, err := fs.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func newSelector(fs afero.Fs) *Selector {
	return NewSelector(fs, ".png", logger.Discard())
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name string
		want Kind
	}{
		{"x_contour_overlay.png", KindContour},
		{"overlay_contour.png", KindContour},
		{"x_contour.png", KindNone},
		{"x.png", KindColour},
		{"x_overlay.png", KindColour},
		{"x.jpg", KindNone},
		{"x_contour_overlay.jpg", KindNone},
	} {
		if got := Classify(tc.name, ".png"); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestSelectLargest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "f/a.png", 100, 50)
	writePNG(t, fs, "f/b.png", 200, 100)
	writePNG(t, fs, "f/small_contour_overlay.png", 10, 10)
	writePNG(t, fs, "f/big_contour_overlay.png", 20, 20)
	writePNG(t, fs, "f/huge_contour.png", 500, 500)

	selection, err := newSelector(fs).Select("f")
	if err != nil {
		t.Fatal(err)
	}
	defer selection.Close()

	if selection.Colour == nil || selection.Colour.Filename != filepath.Join("f", "b.png") {
		t.Errorf("expected b.png as colour, got %+v", selection.Colour)
	}
	if selection.Contour == nil || selection.Contour.Filename != filepath.Join("f", "big_contour_overlay.png") {
		t.Errorf("expected big_contour_overlay.png as contour, got %+v", selection.Contour)
	}
	if selection.Colour.Closed() || selection.Contour.Closed() {
		t.Error("selected images must stay open")
	}
}

func TestSelectTieKeepsFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "f/b.png", 20, 10)
	writePNG(t, fs, "f/a.png", 10, 20)

	selection, err := newSelector(fs).Select("f")
	if err != nil {
		t.Fatal(err)
	}
	if got := filepath.Base(selection.Colour.Filename); got != "a.png" {
		t.Errorf("expected a.png to win the tie, got %s", got)
	}
}

func TestSelectEmptyFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("f/colour_tiles", 0755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, fs, "f/colour_tiles/nested.png", 50, 50)

	selection, err := newSelector(fs).Select("f")
	if err != nil {
		t.Fatal(err)
	}
	if selection.Colour != nil || selection.Contour != nil {
		t.Errorf("expected nothing selected, got %+v", selection)
	}
}

func TestSelectSkipsUndecodable(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "f/a.png", 10, 10)
	if err := afero.WriteFile(fs, "f/broken.png", []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}

	selection, err := newSelector(fs).Select("f")
	if err != nil {
		t.Fatal(err)
	}
	if selection.Colour == nil || filepath.Base(selection.Colour.Filename) != "a.png" {
		t.Errorf("expected a.png as colour, got %+v", selection.Colour)
	}
	if len(selection.Skipped) != 1 {
		t.Fatalf("expected one skipped candidate, got %v", selection.Skipped)
	}
	var decodeErr *imageutils.DecodeError
	if !errors.As(selection.Skipped[0], &decodeErr) {
		t.Errorf("expected DecodeError, got %v", selection.Skipped[0])
	}
}

func TestSelectMissingFolder(t *testing.T) {
	if _, err := newSelector(afero.NewMemMapFs()).Select("nope"); err == nil {
		t.Error("expected an error for a missing folder")
	}
}
