package inmemdb

import (
	"context"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

type complianceRepository struct {
	db *DB
}

var _ compliance.Repository = (*complianceRepository)(nil)

func NewComplianceRepository(db *DB) compliance.Repository {
	return &complianceRepository{db: db}
}

// fail must be called with the lock held.
func (repo *complianceRepository) fail(op string) error {
	if err, ok := repo.db.failures[op]; ok {
		if _, isStoreErr := err.(*core.StoreError); isStoreErr {
			return err
		}
		return core.NewStoreError(op, err)
	}
	return nil
}

func (repo *complianceRepository) QueryTeachers(_ context.Context, owner string) ([]compliance.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if err := repo.fail("QueryTeachers"); err != nil {
		return nil, err
	}
	return append(make([]compliance.Teacher, 0), repo.db.lookup(owner).teachers...), nil
}

func (repo *complianceRepository) CreateTeacher(_ context.Context, owner string, t compliance.Teacher) (compliance.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.fail("CreateTeacher"); err != nil {
		return compliance.Teacher{}, err
	}
	tbl := repo.db.tables(owner)
	tbl.teachers = append(tbl.teachers, t)
	return t, nil
}

func (repo *complianceRepository) DeleteTeacher(_ context.Context, owner, id string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.fail("DeleteTeacher"); err != nil {
		return 0, err
	}
	tbl := repo.db.tables(owner)
	found := false
	teachers := make([]compliance.Teacher, 0, len(tbl.teachers))
	for _, t := range tbl.teachers {
		if t.ID == id {
			found = true
			continue
		}
		teachers = append(teachers, t)
	}
	if !found {
		return 0, compliance.ErrTeacherNotFound
	}

	records := make([]compliance.Record, 0, len(tbl.records))
	for _, r := range tbl.records {
		if r.TeacherID != id {
			records = append(records, r)
		}
	}
	removed := len(tbl.records) - len(records)
	tbl.teachers, tbl.records = teachers, records
	return removed, nil
}

func (repo *complianceRepository) QueryRecords(_ context.Context, owner string) ([]compliance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if err := repo.fail("QueryRecords"); err != nil {
		return nil, err
	}
	return append(make([]compliance.Record, 0), repo.db.lookup(owner).records...), nil
}

func (repo *complianceRepository) CreateRecord(_ context.Context, owner string, r compliance.Record) (compliance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.fail("CreateRecord"); err != nil {
		return compliance.Record{}, err
	}
	tbl := repo.db.tables(owner)
	tbl.records = append(tbl.records, r)
	return r, nil
}

func (repo *complianceRepository) ReplaceAll(_ context.Context, owner string, teachers []compliance.Teacher, records []compliance.Record) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.fail("ReplaceAll"); err != nil {
		return err
	}
	tbl := repo.db.tables(owner)
	tbl.teachers = append(make([]compliance.Teacher, 0, len(teachers)), teachers...)
	tbl.records = append(make([]compliance.Record, 0, len(records)), records...)
	return nil
}
