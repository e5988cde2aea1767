package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Billy-Davies-2/hitchart-input/internal/models"
)

func whiteField(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestShapeAndColorDefaults(t *testing.T) {
	cases := []struct {
		hit   string
		shape Shape
	}{
		{"ゴロ", ShapeEllipse},
		{"フライ", ShapeRectangle},
		{"ライナー", ShapeTriangle},
		{"バント", ShapeEllipse},
		{"", ShapeEllipse},
	}
	for _, tc := range cases {
		if got := ShapeFor(tc.hit); got != tc.shape {
			t.Errorf("ShapeFor(%q) = %s, want %s", tc.hit, got, tc.shape)
		}
	}

	if got := ColorFor("ストレート"); got != "red" {
		t.Errorf("ColorFor(ストレート) = %s", got)
	}
	if got := ColorFor("ナックル"); got != "gray" {
		t.Errorf("unknown pitch type should be gray, got %s", got)
	}
}

func TestEveryVocabularyEntryHasAStyle(t *testing.T) {
	for _, p := range models.PitchTypes {
		if _, ok := pitchTypeColors[p]; !ok {
			t.Errorf("pitch type %s has no color", p)
		}
	}
	for _, h := range models.HitTypes {
		if _, ok := hitTypeShapes[h]; !ok {
			t.Errorf("hit type %s has no shape", h)
		}
	}
	for _, name := range pitchTypeColors {
		if _, ok := namedColors[name]; !ok {
			t.Errorf("color %s cannot be resolved", name)
		}
	}
}

func TestMarkersFor(t *testing.T) {
	recs := []models.Record{
		{Selection: models.Selection{PitchType: "カーブ", HitType: "フライ"}, Point: models.Point{X: 1, Y: 2}},
		{Selection: models.Selection{PitchType: "???", HitType: "???"}, Point: models.Point{X: 3, Y: 4}},
	}
	got := MarkersFor(recs)
	want := []Marker{
		{X: 1, Y: 2, Shape: ShapeRectangle, Color: "purple"},
		{X: 3, Y: 4, Shape: ShapeEllipse, Color: "gray"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d markers", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("marker %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDrawShapes(t *testing.T) {
	r := NewRenderer(whiteField(200), 20)
	img := r.Draw([]Marker{
		{X: 50, Y: 50, Shape: ShapeEllipse, Color: "red"},
		{X: 150, Y: 50, Shape: ShapeRectangle, Color: "blue"},
		{X: 100, Y: 150, Shape: ShapeTriangle, Color: "gray"},
	})

	if got := rgbaAt(img, 50, 50); got != colorRGBA("red") {
		t.Errorf("ellipse center = %v", got)
	}
	// Near the bounding-box corner: inside the square, outside the circle.
	if got := rgbaAt(img, 42, 42); got != colorRGBA("white") {
		t.Errorf("ellipse corner should stay white, got %v", got)
	}
	if got := rgbaAt(img, 142, 42); got != colorRGBA("blue") {
		t.Errorf("rectangle corner = %v", got)
	}
	if got := rgbaAt(img, 100, 155); got != colorRGBA("gray") {
		t.Errorf("triangle body = %v", got)
	}
	if got := rgbaAt(img, 92, 142); got != colorRGBA("white") {
		t.Errorf("outside triangle apex should stay white, got %v", got)
	}
}

func TestDrawLeavesBaseUntouched(t *testing.T) {
	base := whiteField(50)
	r := NewRenderer(base, 20)
	r.Draw([]Marker{{X: 25, Y: 25, Shape: ShapeRectangle, Color: "red"}})
	if got := rgbaAt(base, 25, 25); got != colorRGBA("white") {
		t.Fatalf("base image was modified: %v", got)
	}
}

func TestWritePNG(t *testing.T) {
	r := NewRenderer(whiteField(40), 10)
	var buf bytes.Buffer
	if err := r.WritePNG(&buf, nil); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not PNG: %v", err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}

func TestLoadField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "field.png")

	src := image.NewRGBA(image.Rect(0, 0, 300, 200))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := LoadField(path, 750)
	if err != nil {
		t.Fatalf("LoadField: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 750, 750) {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestLoadFieldMissing(t *testing.T) {
	_, err := LoadField(filepath.Join(t.TempDir(), "baseballfield.jpg"), 750)
	var missing *MissingAssetError
	if !errors.As(err, &missing) {
		t.Fatalf("want MissingAssetError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("MissingAssetError should unwrap to os.ErrNotExist")
	}
}

func TestLoadFieldCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadField(path, 750)
	var missing *MissingAssetError
	if err == nil || errors.As(err, &missing) {
		t.Fatalf("want decode error, got %v", err)
	}
}

func colorRGBA(name string) color.RGBA {
	if name == "white" {
		return color.RGBA{255, 255, 255, 255}
	}
	return RGBA(name)
}
