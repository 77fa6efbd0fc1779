// Command checkdb prints a read-only audit of a mahrfyi database: totals, the
// date range, the latest submissions and any stored locations that the
// current location tables would bucket differently. -since narrows the
// location check to recent submissions.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/vbonduro/mahrfyi/internal/db"
	"github.com/vbonduro/mahrfyi/internal/location"
	"github.com/vbonduro/mahrfyi/internal/store"
)

func main() {
	var (
		dbPath        = flag.String("db", envOr("DB_PATH", "/data/mahrfyi.db"), "path to the SQLite database")
		locationsFile = flag.String("locations", os.Getenv("LOCATIONS_FILE"), "location tables YAML (defaults to the built-in tables)")
		samples       = flag.Int("samples", 5, "number of latest submissions to print")
		window        = flag.Duration("since", 0, "only check locations of submissions newer than this, e.g. 720h (0 checks all)")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.OpenReadOnly(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = database.Close() }()

	tables, err := location.LoadTablesFile(*locationsFile)
	if err != nil {
		log.Fatalf("load location tables: %v", err)
	}

	a := &auditor{
		submissions: store.NewSubmissionStore(database),
		resolver:    location.NewResolver(location.NewNormalizer(tables), nil, nil, slog.Default()),
		samples:     *samples,
	}
	if *window > 0 {
		a.since = time.Now().Add(-*window)
	}
	if err := a.run(ctx, os.Stdout); err != nil {
		log.Fatalf("audit failed: %v", err)
	}
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
