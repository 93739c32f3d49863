package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bitacora/core/compliance"
)

// TestRepository checks the behaviour every compliance.Repository driver must share.
// newRepo must return an empty store; owners are random so persistent stores can be reused.
func TestRepository(t *testing.T, newRepo func(t *testing.T) compliance.Repository) {
	ctx := context.Background()

	t.Run("insertion order", func(t *testing.T) {
		repo, owner := newRepo(t), uuid.New().String()
		var want []compliance.Teacher
		for _, name := range []string{"Zoe", "Ana", "Mia"} {
			want = append(want, CreateTeacher(t, repo, owner, name))
		}
		day := Date(2024, 3, 4, 10, 0)
		r1 := CreateRecord(t, repo, owner, want[2], day, "1ro Básico", "Lenguaje", compliance.StatusComplied)
		r2 := CreateRecord(t, repo, owner, want[0], day.AddDate(0, 0, -1), "2do Básico", "Historia", compliance.StatusNotComplied)

		teachers, err := repo.QueryTeachers(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, want, teachers)

		records, err := repo.QueryRecords(ctx, owner)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, r1.ID, records[0].ID)
		assert.Equal(t, r2.ID, records[1].ID)
		assert.True(t, r1.Date.Equal(records[0].Date))
		assert.Equal(t, r1.TeacherName, records[0].TeacherName)
		assert.Equal(t, r2.Status, records[1].Status)
	})

	t.Run("owners are isolated", func(t *testing.T) {
		repo := newRepo(t)
		mine, theirs := uuid.New().String(), uuid.New().String()
		ana := CreateTeacher(t, repo, mine, "Ana")
		CreateRecord(t, repo, mine, ana, Date(2024, 3, 4, 10, 0), "1ro Básico", "Lenguaje", compliance.StatusComplied)

		records, err := repo.QueryRecords(ctx, theirs)
		require.NoError(t, err)
		assert.Empty(t, records)

		_, err = repo.DeleteTeacher(ctx, theirs, ana.ID)
		assert.Equal(t, compliance.ErrTeacherNotFound, err)

		records, err = repo.QueryRecords(ctx, mine)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("cascade delete", func(t *testing.T) {
		repo, owner := newRepo(t), uuid.New().String()
		ana := CreateTeacher(t, repo, owner, "Ana")
		ben := CreateTeacher(t, repo, owner, "Ben")
		day := Date(2024, 3, 4, 10, 0)
		CreateRecord(t, repo, owner, ana, day, "1ro Básico", "Lenguaje", compliance.StatusComplied)
		keep := CreateRecord(t, repo, owner, ben, day, "1ro Básico", "Lenguaje", compliance.StatusComplied)
		CreateRecord(t, repo, owner, ana, day, "2do Básico", "Lenguaje", compliance.StatusNotComplied)

		removed, err := repo.DeleteTeacher(ctx, owner, ana.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		teachers, err := repo.QueryTeachers(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, []compliance.Teacher{ben}, teachers)
		records, err := repo.QueryRecords(ctx, owner)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, keep.ID, records[0].ID)
		for _, r := range records {
			assert.NotEqual(t, ana.ID, r.TeacherID)
		}

		_, err = repo.DeleteTeacher(ctx, owner, ana.ID)
		assert.Equal(t, compliance.ErrTeacherNotFound, err)
	})

	t.Run("replace all", func(t *testing.T) {
		repo, owner := newRepo(t), uuid.New().String()
		old := CreateTeacher(t, repo, owner, "Ana")
		CreateRecord(t, repo, owner, old, Date(2024, 3, 4, 10, 0), "1ro Básico", "Lenguaje", compliance.StatusComplied)

		caro := compliance.Teacher{ID: compliance.NewID(), Name: "Caro"}
		dani := compliance.Teacher{ID: compliance.NewID(), Name: "Dani"}
		rec := NewRecord(caro, Date(2024, 3, 5, 9, 0), "2do Básico", "Historia", compliance.StatusNotComplied)
		require.NoError(t, repo.ReplaceAll(ctx, owner, []compliance.Teacher{caro, dani}, []compliance.Record{rec}))

		teachers, err := repo.QueryTeachers(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, []compliance.Teacher{caro, dani}, teachers)
		records, err := repo.QueryRecords(ctx, owner)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, rec.ID, records[0].ID)

		require.NoError(t, repo.ReplaceAll(ctx, owner, nil, nil))
		teachers, err = repo.QueryTeachers(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, teachers)
	})
}
