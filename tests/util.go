package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
	"github.com/trezcool/bitacora/services/logger"
	"github.com/trezcool/bitacora/storage/database/inmem"
)

const Owner = "owner-1"

var (
	Courses  = []string{"1ro Básico", "2do Básico", "3ro Básico"}
	Subjects = []string{"Lenguaje", "Matemática", "Historia"}
)

// NewConfig returns a TEST configuration with a small catalog and UTC as canonical zone.
func NewConfig() *core.Config {
	conf := &core.Config{
		AppName:          "Bitácora UTP",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		DefaultFromEmail: mail.Address{Name: "Bitácora UTP", Address: "noreply@bitacora.test"},
		ReportRecipients: []mail.Address{{Name: "UTP", Address: "utp@bitacora.test"}},
		TimeZone:         "UTC",
		Courses:          Courses,
		Subjects:         Subjects,
	}
	conf.Store.Driver = core.StoreMemory
	conf.Auth.Mode = core.AuthJWT
	conf.Auth.TokenExpirationDelta = time.Hour
	conf.Server.DisableReqLogs = true
	return conf
}

func NewLogger() core.Logger {
	l := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
	l.Enable(false)
	return l
}

func NewValidator(conf *core.Config) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	compliance.InitValidators(validate, translator, compliance.NewCatalog(conf))
	return validate, translator
}

// NewService returns a compliance.Service over a fresh in-memory store.
func NewService(conf *core.Config) (*compliance.Service, *inmemdb.DB) {
	db := inmemdb.Open()
	validate, _ := NewValidator(conf)
	return compliance.NewService(inmemdb.NewComplianceRepository(db), validate, NewLogger(), conf), db
}

func CreateTeacher(t *testing.T, repo compliance.Repository, owner, name string) compliance.Teacher {
	teacher, err := repo.CreateTeacher(context.Background(), owner, compliance.Teacher{ID: compliance.NewID(), Name: name})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return teacher
}

func CreateRecord(
	t *testing.T,
	repo compliance.Repository,
	owner string,
	teacher compliance.Teacher,
	date time.Time,
	course, subject string,
	status compliance.Status,
) compliance.Record {
	rec, err := repo.CreateRecord(context.Background(), owner, NewRecord(teacher, date, course, subject, status))
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

func NewRecord(teacher compliance.Teacher, date time.Time, course, subject string, status compliance.Status) compliance.Record {
	return compliance.Record{
		ID:          compliance.NewID(),
		TeacherID:   teacher.ID,
		TeacherName: teacher.Name,
		Date:        date,
		Course:      course,
		Subject:     subject,
		Status:      status,
	}
}

// Date returns the UTC instant of the given wall clock.
func Date(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}
