package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteOpaqueURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observer.db")

	handle, dialect, err := Open(context.Background(), "sqlite:"+path)
	require.NoError(t, err)
	defer func() { _ = handle.Close() }()

	assert.Equal(t, DialectSQLite, dialect)
	assert.NoError(t, handle.Ping())
}

func TestOpenSQLiteSlashedURL(t *testing.T) {
	t.Chdir(t.TempDir())

	// SQLAlchemy-style triple slash, path relative to the working directory.
	handle, dialect, err := Open(context.Background(), "sqlite:///observer.db")
	require.NoError(t, err)
	defer func() { _ = handle.Close() }()

	assert.Equal(t, DialectSQLite, dialect)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, _, err := Open(context.Background(), "mysql://root@localhost/db")
	assert.ErrorContains(t, err, "unsupported database URL scheme")
}

func TestOpenRejectsEmptySQLitePath(t *testing.T) {
	_, _, err := Open(context.Background(), "sqlite://")
	assert.Error(t, err)
}
