package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

func TestFormatter_BuildWorkbook(t *testing.T) {
	f := NewFormatter(loc, catalog)
	teachers := []compliance.Teacher{ana, ben, {ID: "t-caro", Name: "Caro"}}
	snap := compliance.NewSnapshot(teachers, sampleRecords(), loc)

	wb, err := f.BuildWorkbook(snap, generated)
	require.NoError(t, err)

	names := make([]string, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{SheetSummary, SheetTeachers, SheetCourses, SheetSubjects, SheetRecords, SheetRoster, SheetAnalysis}, names)

	t.Run("summary", func(t *testing.T) {
		s, _ := wb.Sheet(SheetSummary)
		assert.Contains(t, s.Rows, []interface{}{"Total de Registros", 3})
		assert.Contains(t, s.Rows, []interface{}{"Tasa de Cumplimiento", "67%"})
		assert.Contains(t, s.Rows, []interface{}{"Total de Docentes", 3})
		// top teachers: Ana (2) then Ben (1); Caro has no records
		assert.Equal(t, []interface{}{"Ana María", 2}, s.Rows[len(s.Rows)-2])
		assert.Equal(t, []interface{}{`Ben "Benja" Soto`, 1}, s.Rows[len(s.Rows)-1])
	})

	t.Run("breakdowns skip empty categories", func(t *testing.T) {
		s, _ := wb.Sheet(SheetTeachers)
		require.Len(t, s.Rows, 3) // header + Ana + Ben
		assert.Equal(t, []interface{}{"Ana María", 100, 2, 0, 2}, s.Rows[1])
		assert.Equal(t, []interface{}{`Ben "Benja" Soto`, 0, 0, 1, 1}, s.Rows[2])

		s, _ = wb.Sheet(SheetCourses)
		require.Len(t, s.Rows, 3)

		s, _ = wb.Sheet(SheetSubjects)
		require.Len(t, s.Rows, 3)
		assert.Equal(t, "Lenguaje", s.Rows[1][0])
		assert.Equal(t, "Historia", s.Rows[2][0])
	})

	t.Run("records", func(t *testing.T) {
		s, _ := wb.Sheet(SheetRecords)
		require.Len(t, s.Rows, 4)
		assert.Equal(t, []interface{}{"r1", "Ana María", "2024-03-04", "10:15:30", "1ro Básico", "Lenguaje", "Cumple"}, s.Rows[1])
		assert.Equal(t, "No Cumple", s.Rows[2][6])
	})

	t.Run("analysis", func(t *testing.T) {
		s, _ := wb.Sheet(SheetAnalysis)
		require.NotEmpty(t, s.Rows)
		assert.Equal(t, "Análisis del período 04-03-2024 - 06-03-2024", s.Rows[0][0])
		assert.Contains(t, s.Rows, []interface{}{"El mejor desempeño corresponde a Ana María, con 100% de cumplimiento en 2 registros."})
		assert.Contains(t, s.Rows, []interface{}{"El curso con menor cumplimiento es 2do Básico (0%)."})
	})

	t.Run("no records", func(t *testing.T) {
		_, err := f.BuildWorkbook(compliance.NewSnapshot(teachers, nil, loc), generated)
		assert.True(t, core.IsPrecondition(err), "err = %v", err)
	})
}

func TestWriteXLSX(t *testing.T) {
	f := NewFormatter(loc, catalog)
	snap := compliance.NewSnapshot([]compliance.Teacher{ana, ben}, sampleRecords(), loc)
	wb, err := f.BuildWorkbook(snap, generated)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, wb))

	xl, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	assert.Equal(t, []string{SheetSummary, SheetTeachers, SheetCourses, SheetSubjects, SheetRecords, SheetRoster, SheetAnalysis}, xl.GetSheetList())

	rows, err := xl.GetRows(SheetRecords)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, generalHeader, rows[0])
	assert.Equal(t, []string{"r1", "Ana María", "2024-03-04", "10:15:30", "1ro Básico", "Lenguaje", "Cumple"}, rows[1])

	roster, err := xl.GetRows(SheetRoster)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ID", "Nombre"}, {"t-ana", "Ana María"}, {"t-ben", `Ben "Benja" Soto`}}, roster)

	assert.Error(t, WriteXLSX(&bytes.Buffer{}, Workbook{}))
}
