package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	require.NoError(t, os.Mkdir(migrations, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "001_init.sql"),
		[]byte(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "002_add_color.sql"),
		[]byte(`ALTER TABLE widgets ADD COLUMN color TEXT NOT NULL DEFAULT '';`), 0o644))

	db, err := NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(migrations))

	_, err = db.DB.Exec(`INSERT INTO widgets (name, color) VALUES ('a', 'green')`)
	assert.NoError(t, err, "both migrations applied")

	// Re-running is a no-op.
	require.NoError(t, db.Migrate(migrations))

	var applied int
	require.NoError(t, db.DB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 2, applied)
}

func TestMigrateBrokenFileFails(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	require.NoError(t, os.Mkdir(migrations, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "001_bad.sql"),
		[]byte(`CREATE TABLE oops (`), 0o644))

	db, err := NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	err = db.Migrate(migrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_bad.sql")

	// The failed migration is not recorded; fixing the file lets it apply.
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "001_bad.sql"),
		[]byte(`CREATE TABLE oops (id INTEGER PRIMARY KEY);`), 0o644))
	assert.NoError(t, db.Migrate(migrations))
}

func TestMigrateMissingDirectory(t *testing.T) {
	db := newTestStore(t)
	assert.Error(t, db.Migrate(filepath.Join(t.TempDir(), "nope")))
}

func TestProjectMigrationsMatchInitSchema(t *testing.T) {
	dir := t.TempDir()

	db, err := NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(filepath.Join("..", "..", "migrations")))

	// The migrated schema accepts the same rows InitSchema does.
	for _, stmt := range []string{
		`INSERT INTO users (phone, role) VALUES ('9876543210', 'farmer')`,
		`INSERT INTO otp_challenges (id, phone, code_hash, expires_at) VALUES ('c1', '9876543210', 'h', CURRENT_TIMESTAMP)`,
		`INSERT INTO listings (ref, phone, waste_type, quantity_tons) VALUES ('r1', '9876543210', 'rice_straw', 5)`,
	} {
		_, err := db.DB.Exec(stmt)
		assert.NoError(t, err, stmt)
	}
}
