// Package loader reads the air-quality CSV into a validated table.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"airquality-dashboard/internal/modules/airquality/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// record mirrors one CSV line. Columns absent from the header stay zero.
type record struct {
	Station  string `csv:"station"`
	Datetime string `csv:"datetime"`
	Year     string `csv:"year"`
	Month    string `csv:"month"`
	Day      string `csv:"day"`
	Hour     string `csv:"hour"`

	PM25 nullFloat `csv:"PM2.5"`
	PM10 nullFloat `csv:"PM10"`
	SO2  nullFloat `csv:"SO2"`
	NO2  nullFloat `csv:"NO2"`
	CO   nullFloat `csv:"CO"`
	O3   nullFloat `csv:"O3"`

	Temp     nullFloat `csv:"TEMP"`
	Pressure nullFloat `csv:"PRES"`
	DewPoint nullFloat `csv:"DEWP"`
	Rain     nullFloat `csv:"RAIN"`
	WindSpd  nullFloat `csv:"WSPM"`
	WindDir  string    `csv:"wd"`

	Season string `csv:"season"`
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (*types.Table, types.LoadReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.LoadReport{}, fmt.Errorf("%w: %s: %v", types.ErrNotFound, path, err)
	}
	if info.IsDir() {
		return nil, types.LoadReport{}, fmt.Errorf("%w: %s is a directory", types.ErrNotFound, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, types.LoadReport{}, fmt.Errorf("%w: %s: %v", types.ErrNotFound, path, err)
	}
	defer f.Close()

	return Load(f, path)
}

// Load decodes CSV from in, drops rows whose timestamp cannot be parsed and
// returns the rows sorted by timestamp. name identifies the source in the report.
func Load(in io.Reader, name string) (*types.Table, types.LoadReport, error) {
	report := types.LoadReport{Source: name}

	br := bufio.NewReader(in)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, report, fmt.Errorf("%w: %s", types.ErrEmptyInput, name)
		}
		return nil, report, fmt.Errorf("%w: read header: %v", types.ErrMalformedInput, err)
	}

	columns := headerColumns(dec.Header())
	present := make(map[types.Column]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	hasDatetime := present[types.ColDatetime]
	hasParts := present[types.ColYear] && present[types.ColMonth] && present[types.ColDay] && present[types.ColHour]
	if !hasDatetime && !hasParts {
		return nil, report, types.MissingColumns(types.ColDatetime)
	}

	var rows []types.Observation
	for {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// header is line 1
			line := report.RowsRead + 2
			return nil, report, fmt.Errorf("%w: line %d: %v", types.ErrMalformedInput, line, err)
		}
		report.RowsRead++

		obs, ok := rec.observation(hasDatetime, present)
		if !ok {
			report.Dropped++
			continue
		}
		rows = append(rows, obs)
	}

	if report.RowsRead == 0 {
		return nil, report, fmt.Errorf("%w: %s has a header but no rows", types.ErrEmptyInput, name)
	}

	report.LoadedAt = time.Now().UTC()
	return types.NewTable(rows, columns), report, nil
}

// headerColumns returns the known columns named in header.
func headerColumns(header []string) []types.Column {
	known := make(map[types.Column]bool, len(types.AllColumns))
	for _, c := range types.AllColumns {
		known[c] = true
	}
	var out []types.Column
	for _, h := range header {
		c := types.Column(strings.TrimSpace(h))
		if known[c] {
			out = append(out, c)
		}
	}
	return out
}

// observation converts rec; ok is false when the row has no usable timestamp.
func (rec *record) observation(useDatetime bool, present map[types.Column]bool) (types.Observation, bool) {
	parts, partsOK := parseParts(rec.Year, rec.Month, rec.Day, rec.Hour)

	var ts time.Time
	if useDatetime {
		t, err := ParseTimestamp(rec.Datetime)
		if err != nil {
			return types.Observation{}, false
		}
		ts = t
	} else {
		if !partsOK {
			return types.Observation{}, false
		}
		ts = parts.time()
	}

	obs := types.Observation{
		Station:  strings.TrimSpace(rec.Station),
		Time:     ts,
		PM25:     rec.PM25.v,
		PM10:     rec.PM10.v,
		SO2:      rec.SO2.v,
		NO2:      rec.NO2.v,
		CO:       rec.CO.v,
		O3:       rec.O3.v,
		Temp:     rec.Temp.v,
		Pressure: rec.Pressure.v,
		DewPoint: rec.DewPoint.v,
		Rain:     rec.Rain.v,
		WindSpd:  rec.WindSpd.v,
		WindDir:  strings.TrimSpace(rec.WindDir),
		Season:   strings.TrimSpace(rec.Season),
	}

	if partsOK {
		obs.Year, obs.Month, obs.Day, obs.Hour = parts.year, parts.month, parts.day, parts.hour
		obs.PartsValid = true
	} else {
		obs.Year, obs.Month, obs.Day, obs.Hour = ts.Year(), int(ts.Month()), ts.Day(), ts.Hour()
		if present[types.ColYear] {
			if y, ok := parseInt(rec.Year); ok {
				obs.Year = y
			}
		}
	}
	if obs.Season == "" {
		obs.Season = types.SeasonOf(ts.Month())
	}
	return obs, true
}
