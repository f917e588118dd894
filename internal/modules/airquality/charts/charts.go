// Package charts renders aggregate tables as PNG images.
package charts

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Palette names a colour scheme offered in the dashboard.
type Palette string

const (
	PaletteDefault Palette = "default"
	PaletteSoft    Palette = "soft"
	PaletteDark    Palette = "dark"
)

var (
	width  = 20 * vg.Centimeter
	height = 11 * vg.Centimeter
)

// ParsePalette accepts an empty string as the default palette.
func ParsePalette(s string) (Palette, error) {
	switch p := Palette(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PaletteDefault, nil
	case PaletteDefault, PaletteSoft, PaletteDark:
		return p, nil
	default:
		return "", fmt.Errorf("unknown palette %q (allowed: default, soft, dark)", s)
	}
}

func (p Palette) colors() []color.Color {
	switch p {
	case PaletteSoft:
		return plotutil.SoftColors
	case PaletteDark:
		return plotutil.DarkColors
	default:
		return plotutil.DefaultColors
	}
}

func (p Palette) color(i int) color.Color {
	c := p.colors()
	return c[i%len(c)]
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	return p
}

func render(w io.Writer, p *plot.Plot, wd, ht vg.Length) error {
	wt, err := p.WriterTo(wd, ht, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
