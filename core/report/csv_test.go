package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

var (
	loc       = time.FixedZone("CLT", -3*60*60)
	generated = time.Date(2024, 3, 8, 12, 0, 5, 0, time.UTC) // 09:00:05 in loc
	catalog   = compliance.Catalog{Courses: []string{"1ro Básico", "2do Básico"}, Subjects: []string{"Lenguaje", "Historia"}}

	ana = compliance.Teacher{ID: "t-ana", Name: "Ana María"}
	ben = compliance.Teacher{ID: "t-ben", Name: `Ben "Benja" Soto`}
)

func record(id string, teacher compliance.Teacher, date time.Time, course, subject string, status compliance.Status) compliance.Record {
	return compliance.Record{ID: id, TeacherID: teacher.ID, TeacherName: teacher.Name, Date: date, Course: course, Subject: subject, Status: status}
}

func sampleRecords() []compliance.Record {
	return []compliance.Record{
		record("r2", ben, time.Date(2024, 3, 5, 14, 0, 0, 0, loc), "2do Básico", "Historia", compliance.StatusNotComplied),
		record("r1", ana, time.Date(2024, 3, 4, 10, 15, 30, 0, loc), "1ro Básico", "Lenguaje", compliance.StatusComplied),
		record("r3", ana, time.Date(2024, 3, 6, 8, 0, 0, 0, loc), "1ro Básico", "Historia", compliance.StatusComplied),
	}
}

func diff(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	ud, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Errorf("output mismatch:\n%s", ud)
}

func TestFormatter_WriteGeneralCSV(t *testing.T) {
	f := NewFormatter(loc, catalog)

	var buf bytes.Buffer
	if err := f.WriteGeneralCSV(&buf, sampleRecords(), generated); err != nil {
		t.Fatalf("WriteGeneralCSV() failed: %v", err)
	}

	want := bom +
		`"Informe General de Cumplimiento"` + "\n" +
		`"Generado el:","08-03-2024, 09:00:05"` + "\n" +
		`"Período del Informe:","04-03-2024 - 06-03-2024"` + "\n" +
		`"Total de Registros:","3"` + "\n" +
		"\n" +
		`"ID de Registro","Docente","Fecha","Hora","Curso","Asignatura","Estado"` + "\n" +
		`"r1","Ana María","2024-03-04","10:15:30","1ro Básico","Lenguaje","Cumple"` + "\n" +
		`"r2","Ben ""Benja"" Soto","2024-03-05","14:00:00","2do Básico","Historia","No Cumple"` + "\n" +
		`"r3","Ana María","2024-03-06","08:00:00","1ro Básico","Historia","Cumple"` + "\n"
	diff(t, buf.String(), want)

	t.Run("stable", func(t *testing.T) {
		var again bytes.Buffer
		if err := f.WriteGeneralCSV(&again, sampleRecords(), generated); err != nil {
			t.Fatalf("WriteGeneralCSV() failed: %v", err)
		}
		diff(t, again.String(), buf.String())
	})

	t.Run("commas stay in one cell", func(t *testing.T) {
		caro := compliance.Teacher{ID: "t-caro", Name: "Soto, Carolina"}
		records := []compliance.Record{
			record("r9", caro, time.Date(2024, 3, 4, 9, 0, 0, 0, loc), "Taller, Arte", "Lenguaje", compliance.StatusComplied),
		}
		var out bytes.Buffer
		if err := f.WriteGeneralCSV(&out, records, generated); err != nil {
			t.Fatalf("WriteGeneralCSV() failed: %v", err)
		}

		wantRow := `"r9","Soto, Carolina","2024-03-04","09:00:00","Taller, Arte","Lenguaje","Cumple"` + "\n"
		if !strings.HasSuffix(out.String(), wantRow) {
			t.Errorf("last row mismatch; want suffix %q in:\n%s", wantRow, out.String())
		}

		r := csv.NewReader(strings.NewReader(strings.TrimPrefix(out.String(), bom)))
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil {
			t.Fatalf("reading back: %v", err)
		}
		last := rows[len(rows)-1]
		if len(last) != len(generalHeader) {
			t.Fatalf("row has %d cells; want %d: %q", len(last), len(generalHeader), last)
		}
		if last[1] != "Soto, Carolina" || last[4] != "Taller, Arte" {
			t.Errorf("cells = %q; commas split the values", last)
		}
	})

	t.Run("no records", func(t *testing.T) {
		var empty bytes.Buffer
		err := f.WriteGeneralCSV(&empty, nil, generated)
		if !core.IsPrecondition(err) {
			t.Errorf("err = %v; want PreconditionError", err)
		}
		if empty.Len() != 0 {
			t.Errorf("wrote %d bytes; want none", empty.Len())
		}
	})
}

func TestFormatter_TeacherCSV(t *testing.T) {
	f := NewFormatter(loc, catalog)
	teachers := []compliance.Teacher{ana, ben, {ID: "t-caro", Name: "Caro"}}
	snap := compliance.NewSnapshot(teachers, sampleRecords(), loc)

	var buf bytes.Buffer
	teacher, err := f.TeacherCSV(&buf, snap, ana.ID, generated)
	if err != nil {
		t.Fatalf("TeacherCSV() failed: %v", err)
	}
	if teacher != ana {
		t.Errorf("teacher = %v; want %v", teacher, ana)
	}

	want := bom +
		`"Informe de Cumplimiento Individual"` + "\n" +
		`"Docente:","Ana María"` + "\n" +
		`"Generado el:","08-03-2024, 09:00:05"` + "\n" +
		`"Período del Informe:","04-03-2024 - 06-03-2024"` + "\n" +
		`"Total de Registros:","2"` + "\n" +
		"\n" +
		`"ID de Registro","Fecha","Hora","Curso","Asignatura","Estado"` + "\n" +
		`"r1","2024-03-04","10:15:30","1ro Básico","Lenguaje","Cumple"` + "\n" +
		`"r3","2024-03-06","08:00:00","1ro Básico","Historia","Cumple"` + "\n"
	diff(t, buf.String(), want)

	if _, err = f.TeacherCSV(&bytes.Buffer{}, snap, "t-caro", generated); !core.IsPrecondition(err) {
		t.Errorf("teacher without records: err = %v; want PreconditionError", err)
	}
	if _, err = f.TeacherCSV(&bytes.Buffer{}, snap, "ghost", generated); err != compliance.ErrTeacherNotFound {
		t.Errorf("unknown teacher: err = %v; want ErrTeacherNotFound", err)
	}
}

func TestFormatter_Filenames(t *testing.T) {
	f := NewFormatter(loc, catalog)
	at := time.Date(2024, 3, 9, 2, 0, 0, 0, time.UTC) // still the 8th in loc

	tests := []struct {
		got, want string
	}{
		{f.GeneralCSVFilename(at), "informe_general_cumplimiento_2024-03-08.csv"},
		{f.TeacherCSVFilename("Ana  María Pérez", at), "informe_Ana__María_Pérez_2024-03-08.csv"},
		{f.WorkbookFilename(at), "informe_cumplimiento_2024-03-08.xlsx"},
		{f.BackupFilename(at), "respaldo_bitacora_2024-03-08.json"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("filename = %q; want %q", tt.got, tt.want)
		}
	}
	if strings.ContainsAny(f.TeacherCSVFilename("a\tb\nc", at), "\t\n ") {
		t.Error("TeacherCSVFilename() kept whitespace")
	}
}
