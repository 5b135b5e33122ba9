package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/pfolio/portfolio-api/internal/api"
	"github.com/pfolio/portfolio-api/internal/app"
	"github.com/pfolio/portfolio-api/internal/config"
	"github.com/pfolio/portfolio-api/internal/database"
	"github.com/pfolio/portfolio-api/internal/logger"
)

var commands = []subcommands.Command{
	&previewCmd{},
	&importCmd{},
	&refreshFxCmd{},
	&updatePricesCmd{},
	&migrateCmd{},
}

// env is the configuration, logger and migrated database shared by the commands.
type env struct {
	cfg *config.Config
	log zerolog.Logger
	db  *sql.DB
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Pretty: true}, os.Stderr)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if _, err := database.Migrate(ctx, db, log); err != nil {
		db.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) services() api.Services {
	return app.NewServices(e.db, e.cfg, e.log)
}

func (e *env) Close() { e.db.Close() }

// isTable reports whether a file should be read as a delimited spreadsheet export.
func isTable(name string, force bool) bool {
	if force {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv":
		return true
	}
	return false
}

func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func openInput(f *flag.FlagSet) (io.ReadCloser, string, error) {
	if f.NArg() != 1 {
		return nil, "", fmt.Errorf("expected exactly one file argument, got %d", f.NArg())
	}
	name := f.Arg(0)
	if name == "-" {
		return io.NopCloser(os.Stdin), name, nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, "", err
	}
	return file, name, nil
}

type previewCmd struct {
	table bool
}

func (*previewCmd) Name() string     { return "preview" }
func (*previewCmd) Synopsis() string { return "parse a statement export and print the rows" }
func (*previewCmd) Usage() string {
	return `portfolioctl preview [-table] <file|->

  Detects the format of a statement export, parses it and prints the rows
  and the lines that could not be parsed as JSON. Nothing is stored.
  Files ending in .csv or .tsv, or any file with -table, are read as a
  spreadsheet export.
`
}

func (c *previewCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.table, "table", false, "Read the input as a CSV/TSV export.")
}

func (c *previewCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	in, name, err := openInput(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	defer in.Close()

	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()
	svc := e.services().Import

	if isTable(name, c.table) {
		preview, err := svc.PreviewTable(in)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return printJSON(preview)
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	preview, err := svc.Preview(string(raw))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return printJSON(preview)
}

type importCmd struct {
	table bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "store the trades of a statement export" }
func (*importCmd) Usage() string {
	return `portfolioctl import [-table] <file|->

  Parses a statement export and stores every trade that is not already
  stored. Dividend and interest rows are counted and skipped.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.table, "table", false, "Read the input as a CSV/TSV export.")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	in, name, err := openInput(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	defer in.Close()

	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()
	svc := e.services().Import

	if isTable(name, c.table) {
		result, err := svc.ImportTable(ctx, in)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return printJSON(result)
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	result, err := svc.Import(ctx, string(raw))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return printJSON(result)
}

type refreshFxCmd struct {
	date string
}

func (*refreshFxCmd) Name() string     { return "refresh-fx" }
func (*refreshFxCmd) Synopsis() string { return "cache a day's exchange rates and backfill transactions" }
func (*refreshFxCmd) Usage() string {
	return `portfolioctl refresh-fx [-date YYYY-MM-DD]

  Downloads the base currency's rates to every supported currency for the
  given day (today by default), then records the rate on every foreign
  currency transaction that has none.
`
}

func (c *refreshFxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", "", "Day to refresh, defaults to today.")
}

func (c *refreshFxCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var date time.Time
	if c.date != "" {
		parsed, err := time.Parse(time.DateOnly, c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		date = parsed
	}

	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()
	svc := e.services()

	report, err := svc.Fx.RefreshAndBackfill(ctx, date, svc.Portfolio)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return printJSON(report)
}

type updatePricesCmd struct{}

func (*updatePricesCmd) Name() string     { return "update-prices" }
func (*updatePricesCmd) Synopsis() string { return "fetch the latest price of every stock" }
func (*updatePricesCmd) Usage() string {
	return `portfolioctl update-prices

  Asks the quote providers for the latest price of every stored stock and
  prints one entry per stock. Stocks without a quote keep their old price.
`
}

func (*updatePricesCmd) SetFlags(*flag.FlagSet) {}

func (*updatePricesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	updates, err := e.services().Price.UpdatePrices(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return printJSON(updates)
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending database migrations" }
func (*migrateCmd) Usage() string {
	return `portfolioctl migrate

  Creates or upgrades the database at DB_PATH.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	// openEnv migrates as part of opening.
	e, err := openEnv(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	e.Close()
	fmt.Println("database is up to date")
	return subcommands.ExitSuccess
}
