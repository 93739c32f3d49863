package compliance

import (
	"fmt"
	"sort"
	"time"
)

type Summary struct {
	Total       int `json:"total"`
	Complied    int `json:"complied"`
	NotComplied int `json:"notComplied"`
	RatePercent int `json:"complianceRate"`
}

// RatePercent rounds 100*complied/total half up; 0 when total is 0.
func RatePercent(complied, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*complied + total) / (2 * total)
}

func (s *Summary) add(r Record) {
	s.Total++
	if r.IsComplied() {
		s.Complied++
	} else {
		s.NotComplied++
	}
	s.RatePercent = RatePercent(s.Complied, s.Total)
}

func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		s.add(r)
	}
	return s
}

type GroupStat struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Summary
}

// ByGroup summarizes records per key, in first-appearance order.
func ByGroup(records []Record, keyFn func(Record) string) []GroupStat {
	stats := make([]GroupStat, 0)
	pos := make(map[string]int)
	for _, r := range records {
		key := keyFn(r)
		i, ok := pos[key]
		if !ok {
			i = len(stats)
			pos[key] = i
			stats = append(stats, GroupStat{Key: key, Label: key})
		}
		stats[i].add(r)
	}
	return stats
}

// ByTeacher summarizes records per teacher, sorted by rate (descending).
// Ties keep the teacher list order; teachers without records are left out.
func ByTeacher(teachers []Teacher, records []Record) []GroupStat {
	stats := ByGroup(records, func(r Record) string { return r.TeacherID })
	for i, r := range firstByTeacher(records) {
		stats[i].Label = r.TeacherName
	}

	order := make(map[string]int, len(teachers))
	for i, t := range teachers {
		order[t.ID] = i
	}
	rank := func(id string) int {
		if i, ok := order[id]; ok {
			return i
		}
		return len(teachers)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].RatePercent != stats[j].RatePercent {
			return stats[i].RatePercent > stats[j].RatePercent
		}
		return rank(stats[i].Key) < rank(stats[j].Key)
	})
	return stats
}

func firstByTeacher(records []Record) []Record {
	seen := make(map[string]bool)
	firsts := make([]Record, 0)
	for _, r := range records {
		if !seen[r.TeacherID] {
			seen[r.TeacherID] = true
			firsts = append(firsts, r)
		}
	}
	return firsts
}

// ByCategory summarizes records per catalog entry, in catalog order (zero rows included).
// Values missing from the catalog follow in first-appearance order.
func ByCategory(records []Record, catalog []string, keyFn func(Record) string) []GroupStat {
	stats := make([]GroupStat, 0, len(catalog))
	pos := make(map[string]int, len(catalog))
	for _, c := range catalog {
		if _, dup := pos[c]; dup {
			continue
		}
		pos[c] = len(stats)
		stats = append(stats, GroupStat{Key: c, Label: c})
	}
	for _, r := range records {
		key := keyFn(r)
		i, ok := pos[key]
		if !ok {
			i = len(stats)
			pos[key] = i
			stats = append(stats, GroupStat{Key: key, Label: key})
		}
		stats[i].add(r)
	}
	return stats
}

func ByCourse(records []Record, courses []string) []GroupStat {
	return ByCategory(records, courses, func(r Record) string { return r.Course })
}

func BySubject(records []Record, subjects []string) []GroupStat {
	return ByCategory(records, subjects, func(r Record) string { return r.Subject })
}

// NonEmpty drops rows without records.
func NonEmpty(stats []GroupStat) []GroupStat {
	out := make([]GroupStat, 0, len(stats))
	for _, s := range stats {
		if s.Total > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Week is an ISO-8601 week.
type Week struct {
	Year int
	Week int
}

func WeekOf(t time.Time, loc *time.Location) Week {
	y, w := t.In(loc).ISOWeek()
	return Week{Year: y, Week: w}
}

func (w Week) String() string { return fmt.Sprintf("%04d-W%02d", w.Year, w.Week) }

func (w Week) Before(o Week) bool {
	if w.Year != o.Year {
		return w.Year < o.Year
	}
	return w.Week < o.Week
}

// WeeklyTrend summarizes records per ISO week (in loc), in ascending week order.
// Weeks without records are never emitted.
func WeeklyTrend(records []Record, loc *time.Location) []GroupStat {
	weeks := make(map[string]Week)
	stats := ByGroup(records, func(r Record) string {
		w := WeekOf(r.Date, loc)
		weeks[w.String()] = w
		return w.String()
	})
	for i := range stats {
		w := weeks[stats[i].Key]
		stats[i].Label = fmt.Sprintf("Semana %d, %d", w.Week, w.Year)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return weeks[stats[i].Key].Before(weeks[stats[j].Key])
	})
	return stats
}

type TeacherCount struct {
	Teacher
	Count int `json:"count"`
}

// TopTeachers returns the n teachers with most records; ties keep the teacher list order.
func TopTeachers(teachers []Teacher, records []Record, n int) []TeacherCount {
	counts := make(map[string]int, len(teachers))
	for _, r := range records {
		counts[r.TeacherID]++
	}

	top := make([]TeacherCount, 0, len(teachers))
	for _, t := range teachers {
		if c := counts[t.ID]; c > 0 {
			top = append(top, TeacherCount{Teacher: t, Count: c})
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	return top
}

// Dashboard bundles the figures shown on the main screen.
type Dashboard struct {
	Summary      Summary        `json:"summary"`
	TeacherCount int            `json:"teacherCount"`
	TopTeachers  []TeacherCount `json:"topTeachers"`
	ByCourse     []GroupStat    `json:"byCourse"`
	BySubject    []GroupStat    `json:"bySubject"`
	Weekly       []GroupStat    `json:"weekly"`
}

func NewDashboard(teachers []Teacher, records []Record, catalog Catalog, loc *time.Location) Dashboard {
	return Dashboard{
		Summary:      Summarize(records),
		TeacherCount: len(teachers),
		TopTeachers:  TopTeachers(teachers, records, 3),
		ByCourse:     ByCourse(records, catalog.Courses),
		BySubject:    BySubject(records, catalog.Subjects),
		Weekly:       WeeklyTrend(records, loc),
	}
}
