package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"rms_pipeline/internal/models"
)

// File naming convention: <unit>_<kind>.csv.
const (
	kindRMS    = "rms"
	kindAlarms = "alarms"
	csvExt     = ".csv"

	timestampColumn = "timestamp"
)

// CSVFolder loads units from a flat directory of CSV files.
type CSVFolder struct {
	dir string
}

func NewCSVFolder(dir string) *CSVFolder { return &CSVFolder{dir: dir} }

// parseFileName splits "<unit>_<kind>.csv". The unit is the text before the
// first underscore and the kind the segment after it.
func parseFileName(name string) (unit, kind string, ok bool) {
	if !strings.EqualFold(filepath.Ext(name), csvExt) {
		return "", "", false
	}
	parts := strings.Split(name, "_")
	if len(parts) < 2 || parts[0] == "" {
		return "", "", false
	}
	kind = strings.ToLower(strings.TrimSuffix(parts[1], filepath.Ext(parts[1])))
	if kind != kindRMS && kind != kindAlarms {
		return "", "", false
	}
	return parts[0], kind, true
}

// scan maps unit -> kind -> path.
func (f *CSVFolder) scan() (map[string]map[string]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", f.dir, err)
	}
	files := make(map[string]map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		unit, kind, ok := parseFileName(e.Name())
		if !ok {
			continue
		}
		if files[unit] == nil {
			files[unit] = make(map[string]string)
		}
		files[unit][kind] = filepath.Join(f.dir, e.Name())
	}
	return files, nil
}

// Units returns every unit that has at least one recognised file.
func (f *CSVFolder) Units(ctx context.Context) ([]string, error) {
	files, err := f.scan()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *CSVFolder) path(unitID, kind string) (string, bool, error) {
	files, err := f.scan()
	if err != nil {
		return "", false, err
	}
	p, ok := files[unitID][kind]
	return p, ok, nil
}

// LoadNumeric reads <unit>_rms.csv.
func (f *CSVFolder) LoadNumeric(ctx context.Context, unitID string) (models.NumericTable, error) {
	p, ok, err := f.path(unitID, kindRMS)
	if err != nil {
		return models.NumericTable{}, err
	}
	if !ok {
		return models.NumericTable{}, fmt.Errorf("%w: no %s file for %q", ErrUnitNotFound, kindRMS, unitID)
	}
	file, err := os.Open(p)
	if err != nil {
		return models.NumericTable{}, err
	}
	defer file.Close()

	tbl, err := ReadRMS(file)
	if err != nil {
		return models.NumericTable{}, fmt.Errorf("%s: %w", p, err)
	}
	return tbl, nil
}

// LoadEvents reads <unit>_alarms.csv. A unit without an alarm file has an
// empty log.
func (f *CSVFolder) LoadEvents(ctx context.Context, unitID string) (models.EventLog, error) {
	p, ok, err := f.path(unitID, kindAlarms)
	if err != nil {
		return nil, err
	}
	if !ok {
		return models.EventLog{}, nil
	}
	file, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	log, err := ReadAlarms(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return log, nil
}

// ReadRMS parses a headed CSV whose "timestamp" column is the index and whose
// other columns are channels. Empty cells load as NaN.
func ReadRMS(r io.Reader) (models.NumericTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.NumericTable{}, errors.New("empty rms file")
		}
		return models.NumericTable{}, fmt.Errorf("read header: %w", err)
	}

	tsCol := -1
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if seen[header[i]] {
			return models.NumericTable{}, fmt.Errorf("duplicate column %q in header", header[i])
		}
		seen[header[i]] = true
		if strings.EqualFold(header[i], timestampColumn) {
			tsCol = i
		}
	}
	if tsCol < 0 {
		return models.NumericTable{}, fmt.Errorf("header has no %q column", timestampColumn)
	}

	var index []time.Time
	cols := make([][]float64, len(header))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.NumericTable{}, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := models.ParseTimestamp(rec[tsCol])
		if err != nil {
			return models.NumericTable{}, fmt.Errorf("line %d: %w", line, err)
		}
		index = append(index, ts)
		for i, cell := range rec {
			if i == tsCol {
				continue
			}
			v, err := parseCell(cell)
			if err != nil {
				return models.NumericTable{}, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			cols[i] = append(cols[i], v)
		}
	}

	tbl := models.NewNumericTable(index)
	for i, name := range header {
		if i == tsCol {
			continue
		}
		values := cols[i]
		if values == nil {
			values = []float64{}
		}
		if err := tbl.SetColumn(name, values); err != nil {
			return models.NumericTable{}, err
		}
	}
	return tbl, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ReadAlarms parses a header-less "timestamp,message" CSV. Unquoted commas in
// the message are kept. Rows whose timestamp cannot be parsed are retained
// with a zero OccurredAt so the aligner can report them.
func ReadAlarms(r io.Reader) (models.EventLog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	log := models.EventLog{}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: expected timestamp,message", line)
		}
		ev := models.AlarmEvent{
			Raw:     strings.TrimSpace(rec[0]),
			Message: strings.TrimSpace(strings.Join(rec[1:], ",")),
		}
		if ts, err := models.ParseTimestamp(ev.Raw); err == nil {
			ev.OccurredAt = ts
		}
		log = append(log, ev)
	}
	return log, nil
}
