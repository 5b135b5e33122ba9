package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfolio/portfolio-api/internal/database"
	"github.com/pfolio/portfolio-api/internal/testutil"
)

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestIsTable(t *testing.T) {
	assert.True(t, isTable("export.CSV", false))
	assert.True(t, isTable("export.tsv", false))
	assert.False(t, isTable("statement.txt", false))
	assert.True(t, isTable("statement.txt", true))
}

// TestImportCmd runs the import twice against a file database.
//
// WHY: the command line import must share the duplicate detection of the API.
func TestImportCmd(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "portfolio.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "disabled")

	export := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(export,
		[]byte("Date,Symbol,Action,Quantity,Price,Currency\n2024-01-15,AAPL,buy,10,150,USD\n"), 0o600))

	assert.Equal(t, subcommands.ExitSuccess, run(t, &importCmd{}, export))
	assert.Equal(t, subcommands.ExitSuccess, run(t, &importCmd{}, export))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	testutil.AssertRowCount(t, db, `"transaction"`, 1)

	t.Run("preview stores nothing", func(t *testing.T) {
		assert.Equal(t, subcommands.ExitSuccess, run(t, &previewCmd{}, export))
	})

	t.Run("missing file argument", func(t *testing.T) {
		assert.Equal(t, subcommands.ExitUsageError, run(t, &importCmd{}))
	})

	t.Run("malformed date", func(t *testing.T) {
		assert.Equal(t, subcommands.ExitUsageError, run(t, &refreshFxCmd{}, "-date", "yesterday"))
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		assert.Equal(t, subcommands.ExitSuccess, run(t, &migrateCmd{}))
	})
}
