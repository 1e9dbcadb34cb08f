// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package buildcache

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/jhellerstein/hydro-sub000/pkg/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// runMigrations applies every pending schema migration to conn, in order.
func runMigrations(conn *sqliteConn) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("buildcache: open embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(conn.raw, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("buildcache: sqlite3 migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("buildcache: build migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("buildcache: run migrations: %w", err)
	}
	log.Debugf("buildcache: schema up to date")
	return nil
}
