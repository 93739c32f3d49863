package backup_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/backup"
	"github.com/trezcool/bitacora/core/compliance"
	"github.com/trezcool/bitacora/storage/database/inmem"
	"github.com/trezcool/bitacora/tests"
)

var ctx = context.Background()

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErr     bool
		wantField   string
		wantRecords int
	}{
		{name: "not json", input: "hola", wantErr: true},
		{name: "trailing data", input: `{"teachers": [], "complianceRecords": []} basura`, wantErr: true},
		{name: "two documents", input: `{"teachers": [], "complianceRecords": []}{}`, wantErr: true},
		{
			name:      "blank teacher name",
			input:     `{"teachers": [{"id": "t1", "name": "Ana"}, {"id": "t2", "name": "   "}], "complianceRecords": []}`,
			wantErr:   true,
			wantField: "teachers[1].name",
		},
		{name: "no teachers", input: `{"complianceRecords": []}`, wantErr: true},
		{name: "teachers not a list", input: `{"teachers": {}, "complianceRecords": []}`, wantErr: true},
		{name: "no records", input: `{"teachers": []}`, wantErr: true},
		{name: "records not a list", input: `{"teachers": [], "complianceRecords": "x"}`, wantErr: true},
		{
			name:    "unknown status",
			input:   `{"teachers": [], "complianceRecords": [{"id": "r1", "teacherId": "t1", "date": "2024-03-04T10:00:00Z", "status": "Quizás"}]}`,
			wantErr: true,
		},
		{name: "empty", input: `{"teachers": [], "complianceRecords": []}`},
		{name: "trailing whitespace", input: "{\"teachers\": [], \"complianceRecords\": []}\n\n"},
		{
			name:        "legacy records key",
			input:       `{"teachers": [{"id": "t1", "name": "Ana"}], "records": [{"id": "r1", "teacherId": "t1", "teacherName": "Ana", "date": "2024-03-04T10:00:00Z", "course": "Taller", "subject": "Lenguaje", "status": "Cumple"}]}`,
			wantRecords: 1,
		},
		{
			name:        "bad export date is ignored",
			input:       `{"teachers": [], "complianceRecords": [{"id": "r1", "teacherId": "t1", "date": "2024-03-04T10:00:00Z", "status": "No Cumple"}], "exportDate": 12}`,
			wantRecords: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := backup.Parse(strings.NewReader(tt.input))
			if tt.wantErr {
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "err = %v; want *core.ValidationError", err)
				if tt.wantField != "" {
					fields := make([]string, 0, len(vErr.Fields))
					for _, f := range vErr.Fields {
						fields = append(fields, f.Field)
					}
					assert.Contains(t, fields, tt.wantField)
				}
				return
			}
			require.NoError(t, err)
			assert.Len(t, p.ComplianceRecords, tt.wantRecords)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	svc, db := testutil.NewService(testutil.NewConfig())
	repo := inmemdb.NewComplianceRepository(db)

	ana := testutil.CreateTeacher(t, repo, testutil.Owner, "Ana")
	ben := testutil.CreateTeacher(t, repo, testutil.Owner, "Ben")
	testutil.CreateRecord(t, repo, testutil.Owner, ana, testutil.Date(2024, 3, 4, 10, 0), "1ro Básico", "Lenguaje", compliance.StatusComplied)
	testutil.CreateRecord(t, repo, testutil.Owner, ben, testutil.Date(2024, 3, 5, 11, 30), "2do Básico", "Historia", compliance.StatusNotComplied)

	before, err := svc.Snapshot(ctx, testutil.Owner)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, backup.Export(before, testutil.Date(2024, 3, 8, 9, 0)).Write(&buf))
	assert.Contains(t, buf.String(), `"exportDate": "2024-03-08T09:00:00Z"`)

	p, err := backup.Parse(&buf)
	require.NoError(t, err)

	res, err := backup.NewReconciler(svc, testutil.NewLogger()).Import(ctx, testutil.Owner, p)
	require.NoError(t, err)
	assert.Equal(t, backup.Result{Teachers: 2, Records: 2}, res)

	after, err := svc.Snapshot(ctx, testutil.Owner)
	require.NoError(t, err)

	// same data under fresh ids
	require.Len(t, after.Teachers, 2)
	require.Len(t, after.Records, 2)
	names := map[string]string{}
	for i, teacher := range after.Teachers {
		assert.NotEqual(t, before.Teachers[i].ID, teacher.ID)
		assert.Equal(t, before.Teachers[i].Name, teacher.Name)
		names[teacher.ID] = teacher.Name
	}
	for i, r := range after.Records {
		old := before.Records[i]
		assert.NotEqual(t, old.ID, r.ID)
		assert.Equal(t, old.TeacherName, names[r.TeacherID], "record must point at the remapped teacher")
		assert.True(t, old.Date.Equal(r.Date))
		assert.Equal(t, old.Course, r.Course)
		assert.Equal(t, old.Subject, r.Subject)
		assert.Equal(t, old.Status, r.Status)
	}
	assert.Equal(t, before.Summary(), after.Summary())
	assert.Greater(t, after.Version, before.Version)
}

func TestRemap(t *testing.T) {
	p := backup.Payload{
		Teachers: []compliance.Teacher{{ID: "t1", Name: "  Ana  "}},
		ComplianceRecords: []compliance.Record{
			{ID: "r1", TeacherID: "t1", TeacherName: "Ana", Date: time.Now(), Status: compliance.StatusComplied},
			{ID: "r2", TeacherID: "gone", TeacherName: "Nadie", Date: time.Now(), Status: compliance.StatusComplied},
		},
	}

	teachers, records, dropped := backup.Remap(p)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Ana", teachers[0].Name)
	require.Len(t, records, 1)
	assert.Equal(t, teachers[0].ID, records[0].TeacherID)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "t1", p.Teachers[0].ID, "payload must not be modified")
}

func TestReconciler_Import(t *testing.T) {
	p := backup.Payload{
		Teachers:          []compliance.Teacher{{ID: "t1", Name: "Ana"}},
		ComplianceRecords: []compliance.Record{{ID: "r1", TeacherID: "t1", TeacherName: "Ana", Date: time.Now(), Status: compliance.StatusComplied}},
	}

	t.Run("store failure keeps data", func(t *testing.T) {
		svc, db := testutil.NewService(testutil.NewConfig())
		ben := testutil.CreateTeacher(t, inmemdb.NewComplianceRepository(db), testutil.Owner, "Ben")
		db.FailOn("ReplaceAll", errors.New("unavailable"))

		_, err := backup.NewReconciler(svc, testutil.NewLogger()).Import(ctx, testutil.Owner, p)
		var sErr *core.StoreError
		require.True(t, errors.As(err, &sErr), "err = %v", err)
		assert.False(t, core.IsInconsistent(err))

		db.FailOn("ReplaceAll", nil)
		teachers, err := svc.ListTeachers(ctx, testutil.Owner)
		require.NoError(t, err)
		assert.Equal(t, []compliance.Teacher{ben}, teachers)
	})

	t.Run("inconsistent store", func(t *testing.T) {
		svc, db := testutil.NewService(testutil.NewConfig())
		db.FailOn("ReplaceAll", core.NewInconsistentStoreError("ReplaceAll", errors.New("second batch failed")))

		var notified int
		svc.Subscribe(func(*compliance.Snapshot) { notified++ })

		_, err := backup.NewReconciler(svc, testutil.NewLogger()).Import(ctx, testutil.Owner, p)
		require.Error(t, err)
		assert.True(t, core.IsInconsistent(err), "err = %v", err)
		assert.Equal(t, 1, notified, "listeners must reload after a partial write")
	})
}
