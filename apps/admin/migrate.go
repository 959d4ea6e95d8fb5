package main

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/storage/database"
)

var migrateFunc = database.Migrate // mockable

// migrate runs pending migrations against one tenant's database, or against
// every configured tenant when code is "all".
func (cli *commandLine) migrate(code string) error {
	codes := []string{code}
	if code == "all" {
		codes = codes[:0]
		for c := range cli.conf.Tenants.DSNs {
			codes = append(codes, c)
		}
	}

	for _, c := range codes {
		dsn, ok := cli.conf.Tenants.DSNs[c]
		if !ok {
			return errors.Errorf("unknown tenant %q", c)
		}
		db, err := database.Open(dsn)
		if err != nil {
			return errors.Wrapf(err, "opening tenant %q", c)
		}
		err = migrateFunc(db)
		closeDB(db)
		if err != nil {
			return errors.Wrapf(err, "migrating tenant %q", c)
		}
		logger.Printf("tenant %q migrated", c)
	}
	return nil
}

func closeDB(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Printf("closing database: %v", err)
	}
}
