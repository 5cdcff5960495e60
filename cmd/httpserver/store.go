package httpserver

import (
	"database/sql"
	"fmt"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/go-petr/pet-pay/internal/store"
	"github.com/go-petr/pet-pay/pkg/configpkg"
	"github.com/go-petr/pet-pay/pkg/dbpkg"
)

// OpenStore returns the store selected by config.DBDriver. The returned *sql.DB is nil
// for the in-memory store.
func OpenStore(config configpkg.Config) (store.Store, *sql.DB, error) {
	switch config.DBDriver {
	case configpkg.DriverMemory:
		return store.NewMemStore(config.LockTimeout), nil, nil
	case configpkg.DriverPostgres, configpkg.DriverPgx:
		db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
		if err != nil {
			return nil, nil, err
		}

		return store.NewSQLStore(db, config.LockTimeout), db, nil
	}

	return nil, nil, fmt.Errorf("unsupported db driver %q", config.DBDriver)
}
