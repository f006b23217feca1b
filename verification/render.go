package verification

import (
	"bytes"
	"fmt"
	"image/png"
	"math/rand/v2"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
)

// Renderer draws a challenge text as an image.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// RenderConfig contains the visual parameters of rendered challenges.
type RenderConfig struct {
	// Width and Height are the canvas size in pixels.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// FontSize is the glyph size in points.
	FontSize float64 `json:"font_size" yaml:"font_size"`

	// Background and Foreground are hex colors such as "#2c2f33".
	Background string `json:"background" yaml:"background"`
	Foreground string `json:"foreground" yaml:"foreground"`

	// NoiseLines is the number of random strokes drawn across the text.
	NoiseLines int `json:"noise_lines" yaml:"noise_lines"`

	// MaxRotation is the maximum tilt of each glyph in degrees.
	MaxRotation float64 `json:"max_rotation" yaml:"max_rotation"`
}

// NewRenderConfig creates and returns a new RenderConfig instance with default settings.
func NewRenderConfig() *RenderConfig {
	return &RenderConfig{
		Width:       250,
		Height:      100,
		FontSize:    40,
		Background:  "#2c2f33",
		Foreground:  "#ffffff",
		NoiseLines:  4,
		MaxRotation: 20,
	}
}

// ImageRenderer is a Renderer that produces PNG images.
type ImageRenderer struct {
	config *RenderConfig
	font   *truetype.Font
}

var _ Renderer = (*ImageRenderer)(nil)

// NewImageRenderer creates an ImageRenderer with the given RenderConfig.
func NewImageRenderer(config *RenderConfig) (*ImageRenderer, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", config.Width, config.Height)
	}

	f, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	return &ImageRenderer{
		config: config,
		font:   f,
	}, nil
}

// Render draws the text on a dark canvas with tilted glyphs and noise strokes, and returns the PNG bytes.
func (r *ImageRenderer) Render(text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("empty challenge text")
	}

	width := float64(r.config.Width)
	height := float64(r.config.Height)

	dc := gg.NewContext(r.config.Width, r.config.Height)
	dc.SetHexColor(r.config.Background)
	dc.Clear()

	dc.SetFontFace(truetype.NewFace(r.font, &truetype.Options{Size: r.config.FontSize}))
	dc.SetHexColor(r.config.Foreground)

	// Glyphs share the canvas width evenly, leaving a margin of half a cell on each side.
	runes := []rune(text)
	cell := width / float64(len(runes)+1)
	for i, ch := range runes {
		x := cell*(float64(i)+1) + jitter(cell/6)
		y := height/2 + jitter(height/10)
		dc.Push()
		dc.RotateAbout(gg.Radians(jitter(r.config.MaxRotation)), x, y)
		dc.DrawStringAnchored(string(ch), x, y, 0.5, 0.35)
		dc.Pop()
	}

	dc.SetLineWidth(2)
	for range r.config.NoiseLines {
		dc.SetRGBA(1, 1, 1, 0.2+rand.Float64()*0.3)
		dc.DrawLine(rand.Float64()*width, rand.Float64()*height, rand.Float64()*width, rand.Float64()*height)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode captcha image: %w", err)
	}
	return buf.Bytes(), nil
}

// jitter returns a uniformly distributed offset in [-limit, limit].
func jitter(limit float64) float64 {
	return (rand.Float64()*2 - 1) * limit
}
