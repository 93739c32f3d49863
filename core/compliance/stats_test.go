package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bitacora/core"
)

func at(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }

func ordering(field string, asc bool) core.Ordering {
	return core.Ordering{Field: field, Ascending: asc}
}

func keys(stats []GroupStat) []string {
	ks := make([]string, 0, len(stats))
	for _, s := range stats {
		ks = append(ks, s.Key)
	}
	return ks
}

func TestRatePercent(t *testing.T) {
	tests := []struct {
		complied, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds half up
		{3, 8, 38}, // 37.5
		{7, 8, 88}, // 87.5
		{5, 5, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RatePercent(tt.complied, tt.total), "RatePercent(%d, %d)", tt.complied, tt.total)
	}
}

func TestSummarize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Summary{}, Summarize(nil))
	})

	t.Run("counts", func(t *testing.T) {
		records := []Record{
			rec("1", "a", at(2024, 3, 4), "c", "s", StatusComplied),
			rec("2", "a", at(2024, 3, 4), "c", "s", StatusNotComplied),
			rec("3", "b", at(2024, 3, 5), "c", "s", StatusNotComplied),
		}
		s := Summarize(records)
		assert.Equal(t, Summary{Total: 3, Complied: 1, NotComplied: 2, RatePercent: 33}, s)
		assert.Equal(t, s.Total, s.Complied+s.NotComplied)
		assert.True(t, s.RatePercent >= 0 && s.RatePercent <= 100)
	})
}

func TestByTeacher(t *testing.T) {
	teachers := []Teacher{{ID: "a", Name: "Ana"}, {ID: "b", Name: "Ben"}, {ID: "c", Name: "Caro"}, {ID: "d", Name: "Dani"}}
	records := []Record{
		rec("1", "c", at(2024, 3, 4), "x", "y", StatusComplied), // c: 100%
		rec("2", "b", at(2024, 3, 4), "x", "y", StatusComplied), // b: 50%
		rec("3", "b", at(2024, 3, 4), "x", "y", StatusNotComplied),
		rec("4", "a", at(2024, 3, 4), "x", "y", StatusComplied), // a: 50%
		rec("5", "a", at(2024, 3, 4), "x", "y", StatusNotComplied),
	}

	stats := ByTeacher(teachers, records)
	// rate descending; a and b tie, so teacher list order applies; d has no records
	assert.Equal(t, []string{"c", "a", "b"}, keys(stats))
	assert.Equal(t, "T c", stats[0].Label) // name snapshot of the record
	assert.Equal(t, 100, stats[0].RatePercent)
	assert.Equal(t, 2, stats[1].Total)
}

func TestByCourse(t *testing.T) {
	courses := []string{"1ro", "2do", "3ro"}
	records := []Record{
		rec("1", "a", at(2024, 3, 4), "3ro", "y", StatusComplied),
		rec("2", "a", at(2024, 3, 4), "Taller", "y", StatusNotComplied),
		rec("3", "a", at(2024, 3, 4), "1ro", "y", StatusNotComplied),
	}

	stats := ByCourse(records, courses)
	assert.Equal(t, []string{"1ro", "2do", "3ro", "Taller"}, keys(stats))
	assert.Equal(t, 0, stats[1].Total)
	assert.Equal(t, 100, stats[2].RatePercent)

	assert.Equal(t, []string{"1ro", "3ro", "Taller"}, keys(NonEmpty(stats)))
}

func TestWeeklyTrend(t *testing.T) {
	records := []Record{
		rec("1", "a", at(2024, 3, 11), "x", "y", StatusComplied),    // Monday, week 11
		rec("2", "a", at(2024, 3, 4), "x", "y", StatusComplied),     // Monday, week 10
		rec("3", "a", at(2024, 3, 10), "x", "y", StatusNotComplied), // Sunday, week 10
		rec("4", "a", at(2024, 12, 30), "x", "y", StatusComplied),   // ISO 2025-W01
		rec("5", "a", at(2024, 12, 23), "x", "y", StatusComplied),   // 2024-W52
	}

	stats := WeeklyTrend(records, time.UTC)
	require.Equal(t, []string{"2024-W10", "2024-W11", "2024-W52", "2025-W01"}, keys(stats))
	assert.Equal(t, 2, stats[0].Total)
	assert.Equal(t, 50, stats[0].RatePercent)
	assert.Equal(t, "Semana 10, 2024", stats[0].Label)
	for _, s := range stats {
		assert.NotZero(t, s.Total)
	}

	assert.Empty(t, WeeklyTrend(nil, time.UTC))
}

func TestTopTeachers(t *testing.T) {
	teachers := []Teacher{{ID: "a", Name: "Ana"}, {ID: "b", Name: "Ben"}, {ID: "c", Name: "Caro"}, {ID: "d", Name: "Dani"}, {ID: "e", Name: "Eli"}}
	var records []Record
	add := func(teacherID string, n int) {
		for i := 0; i < n; i++ {
			records = append(records, rec(teacherID, teacherID, at(2024, 3, 4), "x", "y", StatusComplied))
		}
	}
	add("a", 1)
	add("b", 3)
	add("c", 2)
	add("d", 2)

	top := TopTeachers(teachers, records, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].ID)
	assert.Equal(t, 3, top[0].Count)
	assert.Equal(t, "c", top[1].ID) // tie with d: teacher list order
	assert.Equal(t, "d", top[2].ID)

	assert.Len(t, TopTeachers(teachers, records, 10), 4) // e has no records
}

func TestSortRecords(t *testing.T) {
	records := []Record{
		rec("1", "a", at(2024, 3, 5), "x", "y", StatusComplied),
		rec("2", "a", at(2024, 3, 4), "x", "y", StatusComplied),
		rec("3", "a", at(2024, 3, 6), "x", "y", StatusComplied),
	}
	ids := func(rs []Record) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"3", "1", "2"}, ids(SortRecords(records, ordering("date", false))))
	assert.Equal(t, []string{"2", "1", "3"}, ids(SortRecords(records, ordering("date", true))))
	assert.Equal(t, []string{"1", "2", "3"}, ids(SortRecords(records, ordering("unknown", true))))
	assert.Equal(t, []string{"1", "2", "3"}, ids(records), "input must not be modified")
}
