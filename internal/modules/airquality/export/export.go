// Package export writes filtered observations as CSV or XLSX.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"airquality-dashboard/internal/modules/airquality/types"
)

const (
	sheetName      = "observations"
	datetimeLayout = "2006-01-02 15:04:05"
)

// Frame lays rows out column by column in cols order. Missing measurements are NaN.
func Frame(rows []types.Observation, cols []types.Column) dataframe.DataFrame {
	columns := make([]series.Series, 0, len(cols))
	for _, c := range cols {
		columns = append(columns, column(rows, c))
	}
	return dataframe.New(columns...)
}

func column(rows []types.Observation, c types.Column) series.Series {
	name := string(c)
	switch c {
	case types.ColStation, types.ColSeason, types.ColWindDir, types.ColDatetime:
		vals := make([]string, len(rows))
		for i := range rows {
			vals[i] = text(&rows[i], c)
		}
		return series.New(vals, series.String, name)
	case types.ColYear, types.ColMonth, types.ColDay, types.ColHour:
		vals := make([]int, len(rows))
		for i := range rows {
			vals[i] = part(&rows[i], c)
		}
		return series.New(vals, series.Int, name)
	default:
		vals := make([]float64, len(rows))
		for i := range rows {
			vals[i] = math.NaN()
			if v, _ := rows[i].Value(c); v != nil {
				vals[i] = *v
			}
		}
		return series.New(vals, series.Float, name)
	}
}

func text(o *types.Observation, c types.Column) string {
	switch c {
	case types.ColStation:
		return o.Station
	case types.ColSeason:
		return o.Season
	case types.ColWindDir:
		return o.WindDir
	default:
		return o.Time.Format(datetimeLayout)
	}
}

func part(o *types.Observation, c types.Column) int {
	switch c {
	case types.ColYear:
		return o.Year
	case types.ColMonth:
		return o.Month
	case types.ColDay:
		return o.Day
	default:
		return o.Hour
	}
}

// WriteCSV writes df with a header row.
func WriteCSV(w io.Writer, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("build frame: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes df to a single-sheet workbook. NaN cells are left empty.
func WriteXLSX(w io.Writer, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("build frame: %w", df.Err)
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	names := df.Names()
	header := make([]any, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	cols := make([]series.Series, len(names))
	for i, n := range names {
		cols[i] = df.Col(n)
	}
	row := make([]any, len(names))
	for r := 0; r < df.Nrow(); r++ {
		for i, s := range cols {
			e := s.Elem(r)
			if v, ok := e.Val().(float64); e.IsNA() || ok && math.IsNaN(v) {
				row[i] = nil
				continue
			}
			row[i] = e.Val()
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
