package compliance

import (
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/bitacora/core"
)

// Snapshot is an immutable view of an owner's teachers and records.
// Derived indexes are computed lazily, once per snapshot.
type Snapshot struct {
	Owner    string
	Version  uint64
	Teachers []Teacher
	Records  []Record

	loc     *time.Location
	idxOnce sync.Once
	idx     LogIndex
}

func NewSnapshot(teachers []Teacher, records []Record, loc *time.Location) *Snapshot {
	if loc == nil {
		loc = time.UTC
	}
	return &Snapshot{
		Teachers: append([]Teacher(nil), teachers...),
		Records:  append([]Record(nil), records...),
		loc:      loc,
	}
}

func (s *Snapshot) Location() *time.Location { return s.loc }

func (s *Snapshot) LogIndex() LogIndex {
	s.idxOnce.Do(func() { s.idx = NewLogIndex(s.Records, s.loc) })
	return s.idx
}

func (s *Snapshot) HasLogged(teacherID, course, subject string, day Day) bool {
	return s.LogIndex().Has(teacherID, course, subject, day)
}

func (s *Snapshot) Teacher(id string) (Teacher, bool) {
	for _, t := range s.Teachers {
		if t.ID == id {
			return t, true
		}
	}
	return Teacher{}, false
}

// RecordsOf returns the records logged for the teacher.
func (s *Snapshot) RecordsOf(teacherID string) []Record {
	records := make([]Record, 0)
	for _, r := range s.Records {
		if r.TeacherID == teacherID {
			records = append(records, r)
		}
	}
	return records
}

// fingerprint identifies the snapshot content regardless of the store's ordering.
// Records are immutable, so ids (plus teacher names and record statuses) are enough.
func (s *Snapshot) fingerprint() uint64 {
	keys := make([]string, 0, len(s.Teachers)+len(s.Records))
	for _, t := range s.Teachers {
		keys = append(keys, "t|"+t.ID+"|"+t.Name)
	}
	for _, r := range s.Records {
		keys = append(keys, "r|"+r.ID+"|"+string(r.Status))
	}
	sort.Strings(keys)

	h := fnv.New64a()
	for _, k := range keys {
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

func (s *Snapshot) Summary() Summary { return Summarize(s.Records) }

func (s *Snapshot) Dashboard(catalog Catalog) Dashboard {
	return NewDashboard(s.Teachers, s.Records, catalog, s.loc)
}

// SortRecords sorts a copy of records by the given orderings (date, teacherName, course, subject, status).
// Unknown fields are ignored; the sort is stable.
func SortRecords(records []Record, orderings ...core.Ordering) []Record {
	sorted := append([]Record(nil), records...)
	if len(orderings) == 0 {
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareRecords(sorted[i], sorted[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return sorted
}

func compareRecords(a, b Record, field string) int {
	switch field {
	case "date":
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		}
		return 0
	case "teacherName":
		return strings.Compare(a.TeacherName, b.TeacherName)
	case "course":
		return strings.Compare(a.Course, b.Course)
	case "subject":
		return strings.Compare(a.Subject, b.Subject)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	}
	return 0
}
