// Package storage opens the Record Store selected by the store.driver setting.
package storage

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
	badgerdb "github.com/trezcool/bitacora/storage/badger"
	"github.com/trezcool/bitacora/storage/database"
	inmemdb "github.com/trezcool/bitacora/storage/database/inmem"
	sqlxrepos "github.com/trezcool/bitacora/storage/database/sqlx"
	firestoredb "github.com/trezcool/bitacora/storage/firestore"
)

// CloseFunc releases the resources held by an opened store.
type CloseFunc func() error

func noop() error { return nil }

// Open opens the configured store. Postgres databases are created and migrated on the way.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (compliance.Repository, CloseFunc, error) {
	switch conf.Store.Driver {
	case core.StoreMemory:
		return inmemdb.NewComplianceRepository(inmemdb.Open()), noop, nil

	case core.StoreLocal:
		cfg := badgerdb.NewConfig(conf)
		db, err := badgerdb.Open(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := badgerdb.NewStore(db, cfg)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() error {
			if err := store.Close(); err != nil {
				logger.Error("releasing key sequence", err)
			}
			return db.Close()
		}, nil

	case core.StorePostgres:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, nil, errors.Wrap(err, "migrating database")
		}
		return sqlxrepos.NewComplianceRepository(db), db.Close, nil

	case core.StoreFirestore:
		app, err := firestoredb.NewApp(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening firestore client")
		}
		return firestoredb.NewStore(client), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", conf.Store.Driver)
}
