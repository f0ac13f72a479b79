package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/hray3182/ledgerline/internal/config"
	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/legacy"
	"github.com/hray3182/ledgerline/internal/repository/postgres"
)

const usage = `Import a realtime-database JSON export into an empty ledger.

Usage:
  import --file export.json [--dry-run]
`

func main() {
	fs := pflag.NewFlagSet("import", pflag.ExitOnError)
	file := fs.StringP("file", "f", "", "Path to the JSON export")
	dryRun := fs.Bool("dry-run", false, "Decode and report without writing")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if *file == "" {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open export: %v", err)
	}
	defer f.Close()

	exp, err := legacy.Decode(f, legacy.Options{Location: cfg.Location()})
	if err != nil {
		log.Fatalf("Failed to decode export: %v", err)
	}
	for _, reason := range exp.Skipped {
		log.Printf("Skipped %s", reason)
	}
	log.Printf("Decoded %d accounts, %d transactions, %d recurring payments, %d daily budgets, %d budgets, %d pending payments",
		len(exp.Accounts), len(exp.Transactions), len(exp.RecurringPayments), len(exp.DailyBudgets), len(exp.Budgets), len(exp.PendingPayments))

	if *dryRun {
		return
	}
	if cfg.Database.URI == "" {
		log.Fatal("DATABASE_URI is required")
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg.Database.URI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	res, err := legacy.Import(ctx, postgres.NewStore(db), exp)
	if err != nil {
		log.Fatalf("Failed to import: %v", err)
	}
	log.Printf("Imported %d accounts, %d transactions, %d recurring payments, %d daily budgets, %d budgets, %d pending payments (%d duplicates dropped)",
		res.Accounts, res.Transactions, res.RecurringPayments, res.DailyBudgets, res.Budgets, res.PendingPayments, res.DuplicatePending)
}
