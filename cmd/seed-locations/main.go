package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/locations"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
)

// CLI flags
var (
	csvPath     = flag.String("csv", "", "Path to the locations CSV (required)")
	dsn         = flag.String("dsn", "", "Postgres DSN (default: env DATABASE_URL)")
	colorsPath  = flag.String("colors", "", "Region colour table YAML used to check region names (default: embedded)")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	confirm     = flag.Bool("confirm", false, "Required to write to the database")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key (e.g., 424242). 0 = disabled")
)

// CSV contract
// postcode_initials,region,city_name
// postcode_initials are the one or two letters of a UK postcode area.

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}
	if *csvPath == "" {
		fatalf("--csv is required")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		fatalf("open CSV: %v", err)
	}
	rows, err := locations.ParseCSV(f)
	f.Close()
	if err != nil {
		fatalf("CSV error: %v", err)
	}
	fmt.Printf("Loaded %d locations from %s\n", len(rows), *csvPath)

	colors := regions.DefaultColorTable()
	if *colorsPath != "" {
		if colors, err = regions.LoadColorTable(*colorsPath); err != nil {
			fatalf("colour table: %v", err)
		}
	}
	for _, row := range rows {
		if _, ok := colors.Canonical(row.Region); !ok {
			fmt.Printf("warning: %s has region %q with no colour; it will render as %s\n",
				row.PostcodeInitials, row.Region, colors.Fallback())
		}
	}

	if *dryRun {
		for _, row := range rows {
			fmt.Printf("  %-2s  %-24s  %s\n", row.PostcodeInitials, row.Region, row.CityName)
		}
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	if !*confirm {
		fatalf("Refusing to run without --confirm. Add --dry-run to preview.")
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	res, err := locations.Import(ctx, db, rows, *advisoryKey)
	if err != nil {
		fatalf("import: %v", err)
	}
	fmt.Printf("Done: inserted=%d updated=%d\n", res.Inserted, res.Updated)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
