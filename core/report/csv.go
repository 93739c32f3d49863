package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

const bom = "\uFEFF"

var (
	generalTitle = "Informe General de Cumplimiento"
	teacherTitle = "Informe de Cumplimiento Individual"

	generalHeader = []string{"ID de Registro", "Docente", "Fecha", "Hora", "Curso", "Asignatura", "Estado"}
	teacherHeader = []string{"ID de Registro", "Fecha", "Hora", "Curso", "Asignatura", "Estado"}

	orderByDate = core.Ordering{Field: "date", Ascending: true}

	errNoRecords = "No hay registros para exportar."
)

type csvWriter struct {
	w   *bufio.Writer
	err error
}

// row writes every cell quoted (inner quotes doubled), terminated by "\n".
func (cw *csvWriter) row(cells ...string) {
	if cw.err != nil {
		return
	}
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
	}
	_, cw.err = cw.w.WriteString(strings.Join(quoted, ",") + "\n")
}

func (cw *csvWriter) flush() error {
	if cw.err != nil {
		return cw.err
	}
	return cw.w.Flush()
}

// WriteGeneralCSV writes the report of all records.
func (f *Formatter) WriteGeneralCSV(w io.Writer, records []compliance.Record, generatedAt time.Time) error {
	if len(records) == 0 {
		return core.NewPreconditionError(errNoRecords)
	}

	cw := &csvWriter{w: bufio.NewWriter(w)}
	_, cw.err = cw.w.WriteString(bom)
	cw.row(generalTitle)
	f.writeMeta(cw, records, generatedAt)
	cw.row(generalHeader...)
	for _, r := range chronological(records) {
		cw.row(r.ID, r.TeacherName, f.date(r.Date), f.clock(r.Date), r.Course, r.Subject, r.Status.Label())
	}
	return cw.flush()
}

// WriteTeacherCSV writes the report of one teacher's records.
func (f *Formatter) WriteTeacherCSV(w io.Writer, teacher compliance.Teacher, records []compliance.Record, generatedAt time.Time) error {
	if len(records) == 0 {
		return core.NewPreconditionError(fmt.Sprintf("No hay registros para %s.", teacher.Name))
	}

	cw := &csvWriter{w: bufio.NewWriter(w)}
	_, cw.err = cw.w.WriteString(bom)
	cw.row(teacherTitle)
	cw.row("Docente:", teacher.Name)
	f.writeMeta(cw, records, generatedAt)
	cw.row(teacherHeader...)
	for _, r := range chronological(records) {
		cw.row(r.ID, f.date(r.Date), f.clock(r.Date), r.Course, r.Subject, r.Status.Label())
	}
	return cw.flush()
}

func (f *Formatter) writeMeta(cw *csvWriter, records []compliance.Record, generatedAt time.Time) {
	cw.row("Generado el:", f.timestamp(generatedAt))
	cw.row("Período del Informe:", f.period(records))
	cw.row("Total de Registros:", strconv.Itoa(len(records)))
	cw.row()
}

// TeacherCSV writes the report of the snapshot teacher identified by teacherID.
func (f *Formatter) TeacherCSV(w io.Writer, snap *compliance.Snapshot, teacherID string, generatedAt time.Time) (compliance.Teacher, error) {
	teacher, ok := snap.Teacher(teacherID)
	if !ok {
		return compliance.Teacher{}, compliance.ErrTeacherNotFound
	}
	return teacher, f.WriteTeacherCSV(w, teacher, snap.RecordsOf(teacherID), generatedAt)
}
