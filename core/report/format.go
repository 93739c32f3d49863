// Package report turns compliance snapshots into CSV files and spreadsheet workbooks.
package report

import (
	"regexp"
	"time"

	"github.com/trezcool/bitacora/core/compliance"
)

const (
	dateLayout      = "2006-01-02"           // record date cells
	timeLayout      = "15:04:05"             // record time cells
	shortDateLayout = "02-01-2006"           // report period
	timestampLayout = "02-01-2006, 15:04:05" // generation timestamp
)

var whitespace = regexp.MustCompile(`\s`)

// Formatter renders reports with calendar values in one canonical zone.
type Formatter struct {
	loc     *time.Location
	catalog compliance.Catalog
}

func NewFormatter(loc *time.Location, catalog compliance.Catalog) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc, catalog: catalog}
}

func (f *Formatter) Location() *time.Location { return f.loc }

func (f *Formatter) date(t time.Time) string      { return t.In(f.loc).Format(dateLayout) }
func (f *Formatter) clock(t time.Time) string     { return t.In(f.loc).Format(timeLayout) }
func (f *Formatter) timestamp(t time.Time) string { return t.In(f.loc).Format(timestampLayout) }

// period returns "dd-mm-yyyy - dd-mm-yyyy" spanning the records (empty if none).
func (f *Formatter) period(records []compliance.Record) string {
	if len(records) == 0 {
		return ""
	}
	first, last := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first.In(f.loc).Format(shortDateLayout) + " - " + last.In(f.loc).Format(shortDateLayout)
}

func chronological(records []compliance.Record) []compliance.Record {
	return compliance.SortRecords(records, orderByDate)
}

// File names

func (f *Formatter) GeneralCSVFilename(at time.Time) string {
	return "informe_general_cumplimiento_" + f.date(at) + ".csv"
}

func (f *Formatter) TeacherCSVFilename(name string, at time.Time) string {
	return "informe_" + whitespace.ReplaceAllString(name, "_") + "_" + f.date(at) + ".csv"
}

func (f *Formatter) WorkbookFilename(at time.Time) string {
	return "informe_cumplimiento_" + f.date(at) + ".xlsx"
}

func (f *Formatter) BackupFilename(at time.Time) string {
	return "respaldo_bitacora_" + f.date(at) + ".json"
}
