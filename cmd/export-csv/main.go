package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"recipehub/internal/auth"
	"recipehub/internal/recipes"
	"recipehub/internal/shoppinglist"
	"recipehub/pkg/database"
	"recipehub/pkg/logger"
	"recipehub/pkg/utils"
)

func main() {
	var (
		ingredientsOut = flag.String("ingredients", "data/ingredients.csv", "output CSV for the ingredient catalogue (empty to skip)")
		user           = flag.String("user", "", "user id or email whose shopping list to export")
		listOut        = flag.String("list", "data/shopping_list.csv", "output CSV for the aggregated shopping list")
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	if *ingredientsOut != "" {
		if err := writeFile(*ingredientsOut, func(w io.Writer) error {
			return exportIngredients(ctx, repo, w)
		}); err != nil {
			log.Fatal("export ingredients failed", "error", err)
		}
		log.Info("exported ingredients", "path", *ingredientsOut)
	}

	if *user != "" {
		u, err := findUser(ctx, auth.NewRepo(db), *user)
		if err != nil {
			log.Fatal("lookup user failed", "user", *user, "error", err)
		}
		svc := shoppinglist.NewService(repo, cfg.ShoppingList.Header, shoppinglist.PDFRenderer{FontPath: cfg.ShoppingList.FontPath}, log)
		if err := writeFile(*listOut, func(w io.Writer) error {
			return exportShoppingList(ctx, svc, u.ID, w)
		}); err != nil {
			log.Fatal("export shopping list failed", "error", err)
		}
		log.Info("exported shopping list", "user_id", u.ID, "path", *listOut)
	}
}

func findUser(ctx context.Context, repo *auth.Repo, ref string) (*auth.User, error) {
	var (
		u   *auth.User
		err error
	)
	if strings.Contains(ref, "@") {
		u, err = repo.GetByEmail(ctx, ref)
	} else {
		u, err = repo.GetByID(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func exportIngredients(ctx context.Context, repo *recipes.Repo, out io.Writer) error {
	items, err := repo.ListIngredients(ctx, "")
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.Write([]string{"name", "measurement_unit"}); err != nil {
		return err
	}
	for _, in := range items {
		if err := w.Write([]string{in.Name, in.MeasurementUnit}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func exportShoppingList(ctx context.Context, svc *shoppinglist.Service, userID string, out io.Writer) error {
	list, err := svc.Build(ctx, userID)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.Write([]string{"name", "measurement_unit", "total_amount"}); err != nil {
		return err
	}
	for _, e := range list.Entries {
		if err := w.Write([]string{e.Name, e.Unit, strconv.Itoa(e.TotalAmount)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
