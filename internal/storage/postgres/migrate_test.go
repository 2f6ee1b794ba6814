package postgres

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/dormo/internal/errutil"
)

type mockMigrate struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	closeSrc   error
	closeDB    error
}

func (m *mockMigrate) Up() error   { return m.upErr }
func (m *mockMigrate) Down() error { return m.downErr }
func (m *mockMigrate) Version() (uint, bool, error) {
	return m.version, m.dirty, m.versionErr
}
func (m *mockMigrate) Close() (error, error) { return m.closeSrc, m.closeDB }

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@host:5432/db", migrateURL("postgres://u:p@host:5432/db"))
	assert.Equal(t, "pgx5://u:p@host:5432/db", migrateURL("postgresql://u:p@host:5432/db"))
	assert.Equal(t, "pgx5://host/db", migrateURL("pgx5://host/db"))
}

func TestMigrator_Up(t *testing.T) {
	m := &Migrator{m: &mockMigrate{}}
	assert.NoError(t, m.Up())

	m = &Migrator{m: &mockMigrate{upErr: migrate.ErrNoChange}}
	assert.NoError(t, m.Up(), "no change is not an error")

	m = &Migrator{m: &mockMigrate{upErr: errors.New("boom")}}
	err := m.Up()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_UP_FAILED")
}

func TestMigrator_Version(t *testing.T) {
	m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	m = &Migrator{m: &mockMigrate{version: 2, dirty: true}}
	version, dirty, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.True(t, dirty)
}

func TestMigrator_Close(t *testing.T) {
	m := &Migrator{m: &mockMigrate{closeDB: errors.New("db")}}
	err := m.Close()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	assert.Len(t, ups, 2)
	assert.Len(t, downs, len(ups))
}
