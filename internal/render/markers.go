package render

import (
	"image/color"

	"golang.org/x/image/colornames"

	"github.com/Billy-Davies-2/hitchart-input/internal/models"
)

// Shape is the marker outline drawn for a hit type
type Shape string

const (
	ShapeEllipse   Shape = "ellipse"
	ShapeRectangle Shape = "rectangle"
	ShapeTriangle  Shape = "triangle"
)

// DefaultColor is used for pitch types missing from the color table
const DefaultColor = "gray"

var hitTypeShapes = map[string]Shape{
	"ゴロ":   ShapeEllipse,
	"フライ":  ShapeRectangle,
	"ライナー": ShapeTriangle,
}

var pitchTypeColors = map[string]string{
	"ストレート":   "red",
	"スライダー":   "blue",
	"チェンジアップ": "yellow",
	"フォーク":    "orange",
	"カットボール":  "skyblue",
	"ツーシーム":   "pink",
	"カーブ":     "purple",
}

var namedColors = map[string]color.RGBA{
	"red":     colornames.Red,
	"blue":    colornames.Blue,
	"yellow":  colornames.Yellow,
	"orange":  colornames.Orange,
	"skyblue": colornames.Skyblue,
	"pink":    colornames.Pink,
	"purple":  colornames.Purple,
	"gray":    colornames.Gray,
}

// ShapeFor returns the marker shape for a hit type, ellipse when unknown
func ShapeFor(hitType string) Shape {
	if s, ok := hitTypeShapes[hitType]; ok {
		return s
	}
	return ShapeEllipse
}

// ColorFor returns the marker color name for a pitch type, gray when unknown
func ColorFor(pitchType string) string {
	if c, ok := pitchTypeColors[pitchType]; ok {
		return c
	}
	return DefaultColor
}

// RGBA resolves a color name from the pitch table
func RGBA(name string) color.RGBA {
	if c, ok := namedColors[name]; ok {
		return c
	}
	return namedColors[DefaultColor]
}

// Marker is what the renderer needs to draw one record
type Marker struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Shape Shape  `json:"shape"`
	Color string `json:"color"`
}

// MarkersFor maps records to markers, keeping record order
func MarkersFor(records []models.Record) []Marker {
	markers := make([]Marker, 0, len(records))
	for _, r := range records {
		markers = append(markers, Marker{
			X:     r.X,
			Y:     r.Y,
			Shape: ShapeFor(r.HitType),
			Color: ColorFor(r.PitchType),
		})
	}
	return markers
}
