package sqlxrepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/bitacora/core/compliance"
	"github.com/trezcool/bitacora/storage/database"
	"github.com/trezcool/bitacora/storage/database/sqlx"
	"github.com/trezcool/bitacora/tests"
)

// newRepo connects to the postgres server named by BITACORA_TEST_DATABASE_HOST; the test is skipped without it.
func newRepo(t *testing.T) compliance.Repository {
	host := os.Getenv("BITACORA_TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("BITACORA_TEST_DATABASE_HOST not set")
	}

	conf := testutil.NewConfig()
	conf.Database.Engine = "postgres"
	conf.Database.Host = host
	conf.Database.Port = "5432"
	conf.Database.Name = "bitacora_test"
	conf.Database.User = "postgres"
	conf.Database.Password = os.Getenv("BITACORA_TEST_DATABASE_PASSWORD")
	conf.Database.DisableTLS = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, database.CreateIfNotExist(ctx, conf))
	db, err := database.Open(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db.DB))

	return sqlxrepos.NewComplianceRepository(db)
}

func TestComplianceRepository(t *testing.T) {
	testutil.TestRepository(t, newRepo)
}
