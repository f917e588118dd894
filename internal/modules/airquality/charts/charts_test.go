package charts

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"testing"
	"time"

	"airquality-dashboard/internal/modules/airquality/types"
)

func f(v float64) *float64 { return &v }

func assertPNG(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		t.Errorf("empty image %dx%d", cfg.Width, cfg.Height)
	}
}

func TestParsePalette(t *testing.T) {
	for in, want := range map[string]Palette{"": PaletteDefault, "Soft": PaletteSoft, " dark ": PaletteDark, "default": PaletteDefault} {
		got, err := ParsePalette(in)
		if err != nil || got != want {
			t.Errorf("ParsePalette(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePalette("neon"); err == nil {
		t.Error("ParsePalette(neon) = nil error")
	}
}

func TestMonthlyPM(t *testing.T) {
	march := time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2013, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := []types.MonthlyMean{
		{Station: "A", Month: march, PM25: f(15), PM10: f(20)},
		{Station: "A", Month: april, PM25: nil, PM10: f(25)},
		{Station: "B", Month: march, PM25: f(30), PM10: nil},
	}
	for _, pol := range []types.Column{types.ColPM25, types.ColPM10} {
		var buf bytes.Buffer
		if err := MonthlyPM(&buf, rows, pol, PaletteSoft); err != nil {
			t.Fatalf("MonthlyPM(%s): %v", pol, err)
		}
		assertPNG(t, &buf)
	}

	var buf bytes.Buffer
	if err := MonthlyPM(&buf, rows, types.ColSO2, PaletteDefault); !errors.Is(err, types.ErrMissingColumn) {
		t.Errorf("MonthlyPM(SO2) err = %v; want ErrMissingColumn", err)
	}
}

func TestMonthlyPM_NoRows(t *testing.T) {
	var buf bytes.Buffer
	if err := MonthlyPM(&buf, nil, types.ColPM25, PaletteDark); err != nil {
		t.Fatalf("MonthlyPM: %v", err)
	}
	assertPNG(t, &buf)
}

func TestCorrelation(t *testing.T) {
	m := &types.CorrelationMatrix{
		Columns: []types.Column{types.ColSO2, types.ColNO2, types.ColO3},
		Values: [][]float64{
			{1, 0.5, math.NaN()},
			{0.5, 1, math.NaN()},
			{math.NaN(), math.NaN(), math.NaN()},
		},
	}
	var buf bytes.Buffer
	if err := Correlation(&buf, m, "Pollutant correlation"); err != nil {
		t.Fatalf("Correlation: %v", err)
	}
	assertPNG(t, &buf)

	g := matrixGrid{m: m}
	if c, r := g.Dims(); c != 3 || r != 3 {
		t.Fatalf("Dims = %d, %d", c, r)
	}
	// top row of the image is the first matrix row
	if g.Z(1, 2) != 0.5 {
		t.Errorf("Z(1, 2) = %v; want m[0][1]", g.Z(1, 2))
	}
}

func TestStationAverages(t *testing.T) {
	avg := &types.StationAverages{
		Pollutants: []types.Column{types.ColSO2, types.ColNO2},
		Rows: []types.StationAverage{
			{Station: "A", Means: []*float64{f(5), f(40)}},
			{Station: "B", Means: []*float64{f(10), nil}},
		},
	}
	var buf bytes.Buffer
	if err := StationAverages(&buf, avg, PaletteDefault); err != nil {
		t.Fatalf("StationAverages: %v", err)
	}
	assertPNG(t, &buf)
}
