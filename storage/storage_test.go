package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/storage"
	"github.com/trezcool/bitacora/tests"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		driver   string
		initial  []string
		wantErr  bool
		wantSeed int
	}{
		{name: "memory", driver: core.StoreMemory},
		{name: "local", driver: core.StoreLocal, initial: []string{"Ana", "Ben"}, wantSeed: 2},
		{name: "unknown", driver: "floppy", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testutil.NewConfig()
			conf.Store.Driver = tt.driver
			conf.Store.LocalPath = t.TempDir()
			conf.InitialTeachers = tt.initial

			repo, closeFn, err := storage.Open(ctx, conf, testutil.NewLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeFn()) }()

			teachers, err := repo.QueryTeachers(ctx, testutil.Owner)
			require.NoError(t, err)
			assert.Len(t, teachers, tt.wantSeed)
		})
	}
}
