package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"rms_pipeline/internal/models"
	"rms_pipeline/internal/service"
)

const fileSuffix = "_enriched.csv"

// WriteTable writes a header of "timestamp" plus every column, then one row
// per index entry. Timestamps are RFC3339Nano in UTC.
func WriteTable(w io.Writer, tbl models.NumericTable) error {
	if err := tbl.Validate(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)

	cols := tbl.Columns()
	if err := cw.Write(append([]string{"timestamp"}, cols...)); err != nil {
		return err
	}

	values := make([][]float64, len(cols))
	for i, c := range cols {
		values[i], _ = tbl.Values(c)
	}

	row := make([]string, len(cols)+1)
	for r, ts := range tbl.Index {
		row[0] = ts.UTC().Format(time.RFC3339Nano)
		for i := range cols {
			row[i+1] = formatValue(values[i][r])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatValue writes the shortest exact representation; non-finite values
// come out as NaN, +Inf and -Inf.
func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FileName is the export file name for a unit.
func FileName(unitID string) string { return unitID + fileSuffix }

// WriteReport writes one <unit>_enriched.csv per successful unit of report
// into dir, creating it if needed. It returns the written paths in unit order.
func WriteReport(dir string, report service.RunReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %q: %w", dir, err)
	}

	ids := make([]string, 0, len(report.Results))
	for id := range report.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		p := filepath.Join(dir, FileName(id))
		if err := writeFile(p, report.Results[id].NumericTable); err != nil {
			return paths, fmt.Errorf("unit %s: %w", id, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeFile(path string, tbl models.NumericTable) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteTable(f, tbl)
}
