// Package backup exports and imports the whole data set of an owner as JSON.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

var (
	errInvalidFile = errors.New("formato de archivo inválido")
	errNoTeachers  = "se esperaba una lista de docentes"
	errNoRecords   = "se esperaba una lista de registros"
	errBlankName   = "el nombre no puede estar vacío"
)

// Payload is the backup file content.
type Payload struct {
	Teachers          []compliance.Teacher `json:"teachers"`
	ComplianceRecords []compliance.Record  `json:"complianceRecords"`
	ExportDate        null.Time            `json:"exportDate"`
}

// Export builds the payload of a snapshot.
func Export(snap *compliance.Snapshot, exportedAt time.Time) Payload {
	p := Payload{
		Teachers:          append(make([]compliance.Teacher, 0, len(snap.Teachers)), snap.Teachers...),
		ComplianceRecords: append(make([]compliance.Record, 0, len(snap.Records)), snap.Records...),
	}
	if !exportedAt.IsZero() {
		p.ExportDate = null.TimeFrom(exportedAt.UTC())
	}
	return p
}

// Write encodes the payload as indented JSON.
func (p Payload) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// Parse decodes a backup file. Both "complianceRecords" and the legacy "records" keys are accepted.
func Parse(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, errors.Wrap(err, "reading backup")
	}
	// Unmarshal rejects anything after the top-level value
	var raw map[string]json.RawMessage
	if err = json.Unmarshal(data, &raw); err != nil {
		return Payload{}, core.NewValidationError(errInvalidFile)
	}

	teachersRaw, ok := raw["teachers"]
	if !ok || !isArray(teachersRaw) {
		return Payload{}, core.NewValidationError(errInvalidFile, core.FieldError{Field: "teachers", Error: errNoTeachers})
	}
	recordsRaw, ok := raw["complianceRecords"]
	if !ok || !isArray(recordsRaw) {
		recordsRaw, ok = raw["records"]
	}
	if !ok || !isArray(recordsRaw) {
		return Payload{}, core.NewValidationError(errInvalidFile, core.FieldError{Field: "complianceRecords", Error: errNoRecords})
	}

	var p Payload
	if err := json.Unmarshal(teachersRaw, &p.Teachers); err != nil {
		return Payload{}, core.NewValidationError(errInvalidFile, core.FieldError{Field: "teachers", Error: err.Error()})
	}
	if err := json.Unmarshal(recordsRaw, &p.ComplianceRecords); err != nil {
		return Payload{}, core.NewValidationError(errInvalidFile, core.FieldError{Field: "complianceRecords", Error: err.Error()})
	}
	for i, t := range p.Teachers {
		if core.CleanString(t.Name) == "" {
			return Payload{}, core.NewValidationError(errInvalidFile, core.FieldError{
				Field: fmt.Sprintf("teachers[%d].name", i),
				Error: errBlankName,
			})
		}
	}
	for i, rec := range p.ComplianceRecords {
		if !rec.Status.IsValid() {
			return Payload{}, core.NewValidationError(errInvalidFile, core.FieldError{
				Field: fmt.Sprintf("complianceRecords[%d].status", i),
				Error: fmt.Sprintf("estado desconocido %q", rec.Status),
			})
		}
	}
	if dateRaw, ok := raw["exportDate"]; ok {
		// informative only: an unreadable date is ignored
		_ = json.Unmarshal(dateRaw, &p.ExportDate)
	}
	return p, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Replacer is able to swap all of an owner's data (compliance.Service is one).
type Replacer interface {
	ReplaceAll(ctx context.Context, owner string, teachers []compliance.Teacher, records []compliance.Record) error
}

// Result sums up an import.
type Result struct {
	Teachers int `json:"teachers"`
	Records  int `json:"records"`
	Dropped  int `json:"dropped"`
}

// Reconciler performs destructive imports.
type Reconciler struct {
	store  Replacer
	logger core.Logger
}

func NewReconciler(store Replacer, logger core.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Remap gives every teacher and record a fresh id and rewrites record teacher references.
// Records pointing at a teacher missing from the payload are dropped.
func Remap(p Payload) ([]compliance.Teacher, []compliance.Record, int) {
	idMap := make(map[string]string, len(p.Teachers))
	teachers := make([]compliance.Teacher, 0, len(p.Teachers))
	for _, t := range p.Teachers {
		newID := compliance.NewID()
		idMap[t.ID] = newID
		teachers = append(teachers, compliance.Teacher{ID: newID, Name: core.CleanString(t.Name)})
	}

	records := make([]compliance.Record, 0, len(p.ComplianceRecords))
	for _, r := range p.ComplianceRecords {
		teacherID, ok := idMap[r.TeacherID]
		if !ok {
			continue
		}
		r.ID = compliance.NewID()
		r.TeacherID = teacherID
		records = append(records, r)
	}
	return teachers, records, len(p.ComplianceRecords) - len(records)
}

// Import replaces all of the owner's data with the payload.
// A core.StoreError with Inconsistent set means the store was partially written: reload.
func (rc *Reconciler) Import(ctx context.Context, owner string, p Payload) (Result, error) {
	teachers, records, dropped := Remap(p)
	if dropped > 0 {
		rc.logger.Debug(fmt.Sprintf("import: dropped %d orphaned records", dropped), core.Owner{ID: owner})
	}

	if err := rc.store.ReplaceAll(ctx, owner, teachers, records); err != nil {
		if core.IsInconsistent(err) {
			rc.logger.Error("import left the store inconsistent", err, core.Owner{ID: owner})
		}
		return Result{}, errors.Wrap(err, "replacing data")
	}

	rc.logger.Info(fmt.Sprintf("import: %d teachers, %d records", len(teachers), len(records)), core.Owner{ID: owner})
	return Result{Teachers: len(teachers), Records: len(records), Dropped: dropped}, nil
}
