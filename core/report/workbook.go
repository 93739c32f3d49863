package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

// Sheet names
const (
	SheetSummary   = "Resumen"
	SheetTeachers  = "Por Docente"
	SheetCourses   = "Por Curso"
	SheetSubjects  = "Por Asignatura"
	SheetRecords   = "Registros"
	SheetRoster    = "Docentes"
	SheetAnalysis  = "Análisis"
	workbookTitle  = "Informe de Cumplimiento"
	topTeachersLen = 3
)

type (
	Workbook struct {
		Sheets []Sheet
	}

	Sheet struct {
		Name      string
		Rows      [][]interface{}
		ColWidths []float64
		BoldRows  []int // 1-based
	}
)

func (wb Workbook) Sheet(name string) (Sheet, bool) {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

func (s *Sheet) add(cells ...interface{}) {
	s.Rows = append(s.Rows, cells)
}

func (s *Sheet) addBold(cells ...interface{}) {
	s.add(cells...)
	s.BoldRows = append(s.BoldRows, len(s.Rows))
}

// BuildWorkbook lays out the full workbook of a snapshot.
func (f *Formatter) BuildWorkbook(snap *compliance.Snapshot, generatedAt time.Time) (Workbook, error) {
	if len(snap.Records) == 0 {
		return Workbook{}, core.NewPreconditionError(errNoRecords)
	}

	data := f.analysisData(snap)
	narrative, err := renderAnalysis(data)
	if err != nil {
		return Workbook{}, err
	}

	return Workbook{Sheets: []Sheet{
		f.summarySheet(snap, data, generatedAt),
		breakdownSheet(SheetTeachers, "Docente", data.ByTeacher),
		breakdownSheet(SheetCourses, "Curso", data.ByCourse),
		breakdownSheet(SheetSubjects, "Asignatura", data.BySubject),
		f.recordsSheet(snap.Records),
		rosterSheet(snap.Teachers),
		analysisSheet(narrative),
	}}, nil
}

func (f *Formatter) summarySheet(snap *compliance.Snapshot, data analysisData, generatedAt time.Time) Sheet {
	s := Sheet{Name: SheetSummary, ColWidths: []float64{32, 24}}
	s.addBold(workbookTitle)
	s.add("Generado el:", f.timestamp(generatedAt))
	s.add("Período del Informe:", data.Period)
	s.add()
	s.addBold("Métrica", "Valor")
	s.add("Total de Registros", data.Summary.Total)
	s.add(compliance.StatusComplied.Label(), data.Summary.Complied)
	s.add(compliance.StatusNotComplied.Label(), data.Summary.NotComplied)
	s.add("Tasa de Cumplimiento", fmt.Sprintf("%d%%", data.Summary.RatePercent))
	s.add("Total de Docentes", len(snap.Teachers))
	s.add()
	s.addBold("Docentes con más registros", "Registros")
	for _, tc := range data.TopTeachers {
		s.add(tc.Name, tc.Count)
	}
	return s
}

func breakdownSheet(name, label string, stats []compliance.GroupStat) Sheet {
	s := Sheet{Name: name, ColWidths: []float64{30, 26, 12, 12, 12}}
	s.addBold(label, "Tasa de Cumplimiento (%)", compliance.StatusComplied.Label(), compliance.StatusNotComplied.Label(), "Total")
	for _, st := range compliance.NonEmpty(stats) {
		s.add(st.Label, st.RatePercent, st.Complied, st.NotComplied, st.Total)
	}
	return s
}

func (f *Formatter) recordsSheet(records []compliance.Record) Sheet {
	s := Sheet{Name: SheetRecords, ColWidths: []float64{38, 28, 12, 10, 16, 22, 12}}
	s.addBold(toCells(generalHeader)...)
	for _, r := range chronological(records) {
		s.add(r.ID, r.TeacherName, f.date(r.Date), f.clock(r.Date), r.Course, r.Subject, r.Status.Label())
	}
	return s
}

func rosterSheet(teachers []compliance.Teacher) Sheet {
	s := Sheet{Name: SheetRoster, ColWidths: []float64{38, 30}}
	s.addBold("ID", "Nombre")
	for _, t := range teachers {
		s.add(t.ID, t.Name)
	}
	return s
}

func analysisSheet(narrative string) Sheet {
	s := Sheet{Name: SheetAnalysis, ColWidths: []float64{120}}
	for i, line := range strings.Split(narrative, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		if i == 0 {
			s.addBold(line)
			continue
		}
		s.add(line)
	}
	return s
}

func toCells(ss []string) []interface{} {
	cells := make([]interface{}, len(ss))
	for i, s := range ss {
		cells[i] = s
	}
	return cells
}
