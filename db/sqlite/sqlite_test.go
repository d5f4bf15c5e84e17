package sqlite

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/pingd/db/migration/pingdb"
)

func TestSqliteWALEnabled(t *testing.T) {
	dataSourceName := t.TempDir() + "/test-db.sqlite3"
	_, err := New(dataSourceName, pingdb.AssetNames(), pingdb.Asset, DataSourceOptions{WALEnabled: true})
	require.NoError(t, err)
	_, err = os.Stat(dataSourceName + "-shm")
	require.NoError(t, err)
	_, err = os.Stat(dataSourceName + "-wal")
	require.NoError(t, err)
}

func TestSqliteWALDisabled(t *testing.T) {
	dataSourceName := t.TempDir() + "/test-db.sqlite3"
	_, err := New(dataSourceName, pingdb.AssetNames(), pingdb.Asset, DataSourceOptions{WALEnabled: false})
	require.NoError(t, err)
	_, err = os.Stat(dataSourceName + "-shm")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(dataSourceName + "-wal")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSqliteCreatesSchema(t *testing.T) {
	dataSourceName := t.TempDir() + "/test-db.sqlite3"
	db, err := New(dataSourceName, pingdb.AssetNames(), pingdb.Asset, DataSourceOptions{})
	require.NoError(t, err)
	defer db.Close()

	var tables []string
	err = db.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	require.NoError(t, err)
	assert.Subset(t, tables, []string{"clients", "ping_sessions", "ping_results", "heartbeats"})
}
