package compliance

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bitacora/core"
)

// Status of a lesson-book record.
type Status string

const (
	StatusComplied    Status = "Cumple"
	StatusNotComplied Status = "No Cumple"
)

var Statuses = []Status{StatusComplied, StatusNotComplied}

// ParseStatus maps both display labels and enum names to a Status.
func ParseStatus(s string) Status {
	switch strings.ToUpper(core.CleanString(s)) {
	case "CUMPLE", "COMPLIED":
		return StatusComplied
	case "NO CUMPLE", "NOT_COMPLIED":
		return StatusNotComplied
	}
	return Status(s)
}

func (s Status) IsValid() bool { return s == StatusComplied || s == StatusNotComplied }

// Label is the display label used in reports.
func (s Status) Label() string { return string(s) }

func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

type Teacher struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is one compliance event.
// TeacherName is a snapshot of the teacher's name when the record was logged.
type Record struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacherId"`
	TeacherName string    `json:"teacherName"`
	Date        time.Time `json:"date"`
	Course      string    `json:"course"`
	Subject     string    `json:"subject"`
	Status      Status    `json:"status"`
}

func (r Record) IsComplied() bool { return r.Status == StatusComplied }

// Catalog holds the configured (ordered) courses and subjects.
type Catalog struct {
	Courses  []string `json:"courses"`
	Subjects []string `json:"subjects"`
}

func NewCatalog(conf *core.Config) Catalog {
	return Catalog{Courses: conf.Courses, Subjects: conf.Subjects}
}

func (c Catalog) HasCourse(course string) bool   { return contains(c.Courses, course) }
func (c Catalog) HasSubject(subject string) bool { return contains(c.Subjects, subject) }

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// NewTeacher contains information needed to create a new Teacher.
type NewTeacher struct {
	Name string `json:"name" validate:"notblank"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

// NewRecord contains information needed to log a compliance event.
// Date is optional: RFC 3339, or a wall clock "2006-01-02T15:04[:05]" in the canonical zone.
type NewRecord struct {
	TeacherID string `json:"teacherId" validate:"required"`
	Course    string `json:"course" validate:"required,course"`
	Subject   string `json:"subject" validate:"required,subject"`
	Status    Status `json:"status" validate:"required,status"`
	Date      string `json:"date"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.TeacherID = core.CleanString(nr.TeacherID)
	nr.Course = core.CleanString(nr.Course)
	nr.Subject = core.CleanString(nr.Subject)
	nr.Status = ParseStatus(string(nr.Status))
	nr.Date = core.CleanString(nr.Date)
	return validate.Struct(nr)
}

// when resolves the record instant; the zero Time means "now".
func (nr NewRecord) when(loc *time.Location) (time.Time, error) {
	if nr.Date == "" {
		return time.Time{}, nil
	}
	return ParseInstant(nr.Date, loc)
}

var wallClockLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02 15:04:05"}

// ParseInstant parses an RFC 3339 instant, or a wall clock time in loc.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	var err error
	for _, layout := range wallClockLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// LoggedQuery asks whether a (teacher, course, subject) was already logged on Day.
type LoggedQuery struct {
	TeacherID string `json:"teacherId" query:"teacherId" validate:"required"`
	Course    string `json:"course" query:"course" validate:"notblank"`
	Subject   string `json:"subject" query:"subject" validate:"notblank"`
	Day       string `json:"day" query:"day" validate:"omitempty,datetime=2006-01-02"`
}

func (lq *LoggedQuery) Validate(validate *validator.Validate) error {
	lq.TeacherID = core.CleanString(lq.TeacherID)
	lq.Course = core.CleanString(lq.Course)
	lq.Subject = core.CleanString(lq.Subject)
	lq.Day = core.CleanString(lq.Day)
	return validate.Struct(lq)
}
