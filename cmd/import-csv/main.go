package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"recipehub/internal/recipes"
	"recipehub/pkg/database"
	"recipehub/pkg/logger"
	"recipehub/pkg/utils"
)

func main() {
	var (
		ingredientsIn = flag.String("ingredients", "data/ingredients.csv", "CSV of name,measurement_unit (empty to skip)")
		tagsIn        = flag.String("tags", "", "CSV of name,slug (empty to skip)")
	)
	flag.Parse()

	cfg, err := utils.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbCfg := database.DefaultConfig()
	if cfg.Database.Path != "" {
		dbCfg.Path = cfg.Database.Path
	}
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}
	repo := recipes.NewRepo(db)

	if *ingredientsIn != "" {
		n, err := importFile(ctx, *ingredientsIn, "name", func(row []string) error {
			return repo.UpsertIngredient(ctx, row[0], row[1])
		})
		if err != nil {
			log.Fatal("import ingredients failed", "path", *ingredientsIn, "error", err)
		}
		log.Info("imported ingredients", "path", *ingredientsIn, "rows", n)
	}
	if *tagsIn != "" {
		n, err := importFile(ctx, *tagsIn, "name", func(row []string) error {
			return repo.UpsertTag(ctx, row[0], row[1])
		})
		if err != nil {
			log.Fatal("import tags failed", "path", *tagsIn, "error", err)
		}
		log.Info("imported tags", "path", *tagsIn, "rows", n)
	}
}

func importFile(ctx context.Context, path, headerFirst string, upsert func([]string) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return importRows(ctx, f, headerFirst, upsert)
}

// importRows feeds every two-column row of r to upsert. A first row whose
// first cell equals headerFirst is treated as a header and skipped; blank
// rows are ignored.
func importRows(ctx context.Context, r io.Reader, headerFirst string, upsert func([]string) error) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	n, line := 0, 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		line++
		if err := ctx.Err(); err != nil {
			return n, err
		}

		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}
		if line == 1 && strings.EqualFold(row[0], headerFirst) {
			continue
		}
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			return n, fmt.Errorf("line %d: expected two non-empty columns", line)
		}
		if err := upsert(row[:2]); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
}
