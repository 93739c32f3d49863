package compliance

import (
	"math/rand"
	"testing"
	"time"
)

func rec(id, teacherID string, date time.Time, course, subject string, status Status) Record {
	return Record{ID: id, TeacherID: teacherID, TeacherName: "T " + teacherID, Date: date, Course: course, Subject: subject, Status: status}
}

func TestHasLogged(t *testing.T) {
	loc := time.FixedZone("CLT", -3*60*60)
	records := []Record{
		rec("r1", "ana", time.Date(2024, 3, 4, 10, 0, 0, 0, loc), "1ro Básico", "Lenguaje", StatusComplied),
		rec("r2", "ana", time.Date(2024, 3, 5, 2, 30, 0, 0, time.UTC), "2do Básico", "Historia", StatusNotComplied), // 23:30 on the 4th in loc
		rec("r3", "ben", time.Date(2024, 3, 6, 9, 0, 0, 0, loc), "1ro Básico", "Lenguaje", StatusComplied),
	}
	day := func(d int) Day { return Day{Year: 2024, Month: time.March, Day: d} }

	tests := []struct {
		name      string
		teacherID string
		course    string
		subject   string
		day       Day
		want      bool
	}{
		{name: "same day", teacherID: "ana", course: "1ro Básico", subject: "Lenguaje", day: day(4), want: true},
		{name: "next day", teacherID: "ana", course: "1ro Básico", subject: "Lenguaje", day: day(5)},
		{name: "other subject", teacherID: "ana", course: "1ro Básico", subject: "Matemática", day: day(4)},
		{name: "other course", teacherID: "ana", course: "2do Básico", subject: "Lenguaje", day: day(4)},
		{name: "other teacher", teacherID: "ben", course: "1ro Básico", subject: "Lenguaje", day: day(4)},
		{name: "day taken in canonical zone", teacherID: "ana", course: "2do Básico", subject: "Historia", day: day(4), want: true},
		{name: "not the UTC day", teacherID: "ana", course: "2do Básico", subject: "Historia", day: day(5)},
		{name: "other teacher logged", teacherID: "ben", course: "1ro Básico", subject: "Lenguaje", day: day(6), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasLogged(records, loc, tt.teacherID, tt.course, tt.subject, tt.day); got != tt.want {
				t.Errorf("HasLogged() = %v; want %v", got, tt.want)
			}
		})
	}

	t.Run("empty", func(t *testing.T) {
		if HasLogged(nil, loc, "ana", "1ro Básico", "Lenguaje", day(4)) {
			t.Error("HasLogged(nil) = true; want false")
		}
	})

	t.Run("order independent", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(42))
		for i := 0; i < 10; i++ {
			shuffled := append([]Record(nil), records...)
			rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			for _, tt := range tests {
				if got := HasLogged(shuffled, loc, tt.teacherID, tt.course, tt.subject, tt.day); got != tt.want {
					t.Fatalf("%s: HasLogged(shuffled) = %v; want %v", tt.name, got, tt.want)
				}
			}
		}
	})
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-03-04")
	if err != nil {
		t.Fatalf("ParseDay() failed: %v", err)
	}
	if want := (Day{Year: 2024, Month: time.March, Day: 4}); d != want {
		t.Errorf("ParseDay() = %v; want %v", d, want)
	}
	if d.String() != "2024-03-04" {
		t.Errorf("Day.String() = %q", d.String())
	}
	if _, err = ParseDay("04-03-2024"); err == nil {
		t.Error("ParseDay(04-03-2024) should fail")
	}
}

func TestSnapshot_LogIndex(t *testing.T) {
	loc := time.UTC
	snap := NewSnapshot(
		[]Teacher{{ID: "ana", Name: "Ana"}},
		[]Record{rec("r1", "ana", time.Date(2024, 3, 4, 10, 0, 0, 0, loc), "1ro Básico", "Lenguaje", StatusComplied)},
		loc,
	)
	day := Day{Year: 2024, Month: time.March, Day: 4}
	if !snap.HasLogged("ana", "1ro Básico", "Lenguaje", day) {
		t.Error("HasLogged() = false; want true")
	}
	// memoized index is reused
	if idx1, idx2 := snap.LogIndex(), snap.LogIndex(); len(idx1) != 1 || len(idx2) != 1 {
		t.Errorf("LogIndex() sizes = %d, %d; want 1", len(idx1), len(idx2))
	}
}
