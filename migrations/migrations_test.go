package migrations

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemaParses(t *testing.T) {
	all, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, all)

	first := all[0]
	assert.Equal(t, "0001", first.Version)
	assert.Equal(t, "init", first.Name)
	for _, table := range []string{"users", "properties", "featured_properties", "audit_logs", "notifications", "favorites", "inquiries", "idempotency_keys"} {
		assert.Contains(t, first.Up, "CREATE TABLE "+table+" (", table)
		assert.Contains(t, first.Down, "DROP TABLE IF EXISTS "+table+";", table)
	}
	assert.NotContains(t, first.Up, "DROP TABLE")
}

func TestLoadOrdersAndRejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql": {Data: []byte("-- +up\nSELECT 2;")},
		"0001_a.sql": {Data: []byte("-- +up\nSELECT 1;\n-- +down\nSELECT -1;")},
	}
	all, err := load(fsys)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "0001", all[0].Version)
	assert.Equal(t, "SELECT -1;", all[0].Down)
	assert.Empty(t, all[1].Down)

	fsys["0001_again.sql"] = &fstest.MapFile{Data: []byte("-- +up\nSELECT 3;")}
	_, err = load(fsys)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "duplicate version"))
}

func TestParseRejectsMalformedFiles(t *testing.T) {
	_, err := parse("init.sql", "-- +up\nSELECT 1;")
	assert.Error(t, err)
	_, err = parse("0001_init.sql", "SELECT 1;")
	assert.Error(t, err)
	_, err = parse("0001_init.sql", "-- +up\n-- +down\nDROP TABLE x;")
	assert.Error(t, err)
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: "0001"}, {Version: "0002"}, {Version: "0003"}}
	got := Pending(all, []Record{{Version: "0001"}, {Version: "0003"}})
	require.Len(t, got, 1)
	assert.Equal(t, "0002", got[0].Version)
}
