package main

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/storage/database"
)

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
