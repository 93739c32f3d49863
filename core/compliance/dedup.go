package compliance

import (
	"fmt"
	"time"
)

// Day is a calendar date in the canonical zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar date of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a "2006-01-02" date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t, time.UTC), nil
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// LogKey is the duplicate-detection key: "day|teacherId|course|subject".
func LogKey(day Day, teacherID, course, subject string) string {
	return day.String() + "|" + teacherID + "|" + course + "|" + subject
}

// LogIndex is the set of LogKey of a record collection.
type LogIndex map[string]struct{}

// NewLogIndex indexes records by day (in loc), teacher, course and subject.
func NewLogIndex(records []Record, loc *time.Location) LogIndex {
	idx := make(LogIndex, len(records))
	for _, r := range records {
		idx[LogKey(DayOf(r.Date, loc), r.TeacherID, r.Course, r.Subject)] = struct{}{}
	}
	return idx
}

func (idx LogIndex) Has(teacherID, course, subject string, day Day) bool {
	_, ok := idx[LogKey(day, teacherID, course, subject)]
	return ok
}

// HasLogged tells whether a record exists for the teacher, course and subject on day.
func HasLogged(records []Record, loc *time.Location, teacherID, course, subject string, day Day) bool {
	return NewLogIndex(records, loc).Has(teacherID, course, subject, day)
}
