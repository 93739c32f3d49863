package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

const (
	selectTeachers = `SELECT id, name FROM teacher WHERE owner_id = $1 ORDER BY seq`
	insertTeacher  = `INSERT INTO teacher (id, owner_id, name) VALUES (:id, :owner_id, :name)`
	deleteTeacher  = `DELETE FROM teacher WHERE owner_id = $1 AND id = $2`
	wipeTeachers   = `DELETE FROM teacher WHERE owner_id = $1`

	selectRecords = `SELECT id, teacher_id, teacher_name, date, course, subject, status
		FROM compliance_record WHERE owner_id = $1 ORDER BY seq`
	insertRecord = `INSERT INTO compliance_record (id, owner_id, teacher_id, teacher_name, date, course, subject, status)
		VALUES (:id, :owner_id, :teacher_id, :teacher_name, :date, :course, :subject, :status)`
	deleteTeacherRecords = `DELETE FROM compliance_record WHERE owner_id = $1 AND teacher_id = $2`
	wipeRecords          = `DELETE FROM compliance_record WHERE owner_id = $1`
)

type (
	teacherRow struct {
		ID      string `db:"id"`
		OwnerID string `db:"owner_id"`
		Name    string `db:"name"`
	}

	recordRow struct {
		ID          string    `db:"id"`
		OwnerID     string    `db:"owner_id"`
		TeacherID   string    `db:"teacher_id"`
		TeacherName string    `db:"teacher_name"`
		Date        time.Time `db:"date"`
		Course      string    `db:"course"`
		Subject     string    `db:"subject"`
		Status      string    `db:"status"`
	}
)

func toTeacherRow(owner string, t compliance.Teacher) teacherRow {
	return teacherRow{ID: t.ID, OwnerID: owner, Name: t.Name}
}

func (row teacherRow) teacher() compliance.Teacher {
	return compliance.Teacher{ID: row.ID, Name: row.Name}
}

func toRecordRow(owner string, r compliance.Record) recordRow {
	return recordRow{
		ID:          r.ID,
		OwnerID:     owner,
		TeacherID:   r.TeacherID,
		TeacherName: r.TeacherName,
		Date:        r.Date.UTC(),
		Course:      r.Course,
		Subject:     r.Subject,
		Status:      string(r.Status),
	}
}

func (row recordRow) record() compliance.Record {
	return compliance.Record{
		ID:          row.ID,
		TeacherID:   row.TeacherID,
		TeacherName: row.TeacherName,
		Date:        row.Date,
		Course:      row.Course,
		Subject:     row.Subject,
		Status:      compliance.Status(row.Status),
	}
}

type complianceRepository struct {
	db *sqlx.DB
}

var _ compliance.Repository = (*complianceRepository)(nil) // interface compliance check

// NewComplianceRepository returns the postgres Record Store. Rows keep insertion order through their seq column.
func NewComplianceRepository(db *sqlx.DB) compliance.Repository {
	return &complianceRepository{db: db}
}

func (repo *complianceRepository) QueryTeachers(ctx context.Context, owner string) ([]compliance.Teacher, error) {
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, selectTeachers, owner); err != nil {
		return nil, core.NewStoreError("QueryTeachers", err)
	}
	teachers := make([]compliance.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.teacher())
	}
	return teachers, nil
}

func (repo *complianceRepository) CreateTeacher(ctx context.Context, owner string, t compliance.Teacher) (compliance.Teacher, error) {
	if _, err := repo.db.NamedExecContext(ctx, insertTeacher, toTeacherRow(owner, t)); err != nil {
		return compliance.Teacher{}, core.NewStoreError("CreateTeacher", err)
	}
	return t, nil
}

func (repo *complianceRepository) DeleteTeacher(ctx context.Context, owner, id string) (removed int, err error) {
	err = repo.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, deleteTeacherRecords, owner, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(n)

		if res, err = tx.ExecContext(ctx, deleteTeacher, owner, id); err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		if n == 0 {
			return compliance.ErrTeacherNotFound
		}
		return nil
	})
	if err == compliance.ErrTeacherNotFound {
		return 0, err
	}
	if err != nil {
		return 0, core.NewStoreError("DeleteTeacher", err)
	}
	return removed, nil
}

func (repo *complianceRepository) QueryRecords(ctx context.Context, owner string) ([]compliance.Record, error) {
	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, selectRecords, owner); err != nil {
		return nil, core.NewStoreError("QueryRecords", err)
	}
	records := make([]compliance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (repo *complianceRepository) CreateRecord(ctx context.Context, owner string, r compliance.Record) (compliance.Record, error) {
	if _, err := repo.db.NamedExecContext(ctx, insertRecord, toRecordRow(owner, r)); err != nil {
		return compliance.Record{}, core.NewStoreError("CreateRecord", err)
	}
	return r, nil
}

// ReplaceAll runs in a single transaction, so a failure leaves the previous data untouched.
func (repo *complianceRepository) ReplaceAll(ctx context.Context, owner string, teachers []compliance.Teacher, records []compliance.Record) error {
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, wipeRecords, owner); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, wipeTeachers, owner); err != nil {
			return err
		}
		for _, t := range teachers {
			if _, err := tx.NamedExecContext(ctx, insertTeacher, toTeacherRow(owner, t)); err != nil {
				return err
			}
		}
		for _, r := range records {
			if _, err := tx.NamedExecContext(ctx, insertRecord, toRecordRow(owner, r)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.NewStoreError("ReplaceAll", err)
	}
	return nil
}

func (repo *complianceRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
