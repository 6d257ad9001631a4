package database

import (
	"database/sql"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ead/core"
)

func TestURL(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db",
		Port:          "5432",
		Name:          "ead",
		User:          "ead",
		Password:      "p@ss",
		AdminUser:     "postgres",
		AdminPassword: "root",
		DisableTLS:    true,
	}}

	assert.Equal(t, "postgres://ead:p%40ss@db:5432/ead?sslmode=disable&timezone=utc", URL("ead", false, conf))
	assert.Equal(t, "postgres://postgres:root@db:5432/postgres?sslmode=disable&timezone=utc", URL("postgres", true, conf))

	conf.Database.AdminUser = ""
	conf.Database.DisableTLS = false
	assert.Equal(t, "postgres://ead:p%40ss@db:5432/postgres?sslmode=require&timezone=utc", URL("postgres", true, conf))
}

func TestMigrate(t *testing.T) {
	var gotCmd, gotDir string
	var gotArgs []string
	origGooseRun := gooseRunFunc
	gooseRunFunc = func(command string, _ *sql.DB, _ fs.FS, dir string, args ...string) error {
		gotCmd, gotDir, gotArgs = command, dir, args
		return nil
	}
	defer func() { gooseRunFunc = origGooseRun }()

	assert.NoError(t, Migrate(nil, "up-to", "2"))
	assert.Equal(t, "up-to", gotCmd)
	assert.Equal(t, "migrations", gotDir)
	assert.Equal(t, []string{"2"}, gotArgs)
}
