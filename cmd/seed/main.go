// Command seed loads the default fleet into the rental database.
//
// By default it only writes to an empty catalog. Use -force to upsert the
// fleet over existing rows, and -categories to limit which cars are written.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/garyellow/rentcar-bot/internal/config"
	"github.com/garyellow/rentcar-bot/internal/logger"
	"github.com/garyellow/rentcar-bot/internal/rental"
	"github.com/garyellow/rentcar-bot/internal/storage"
)

var (
	forceFlag      = flag.Bool("force", false, "Upsert the default fleet even when cars already exist")
	categoriesFlag = flag.String("categories", "", "Comma-separated categories to seed (empty = all)")
	timeoutFlag    = flag.Duration("timeout", 30*time.Second, "Overall timeout")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadForMode(config.SeedMode)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	categories, err := parseCategories(*categoriesFlag)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Invalid -categories: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	if err := run(ctx, cfg.SQLitePath(), categories, *forceFlag, log); err != nil {
		log.WithError(err).Error("Seeding failed")
		fmt.Printf("❌ Seeding failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, categories []rental.Category, force bool, log *logger.Logger) error {
	db, err := storage.New(ctx, path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", path).Info("Database connected")

	existing, err := db.CountCars(ctx)
	if err != nil {
		return err
	}
	if existing > 0 && !force {
		fmt.Printf("⏭️  Catalog already has %d cars, skipping (use -force to upsert)\n", existing)
		return nil
	}

	cars := filterFleet(storage.DefaultFleet(), categories)
	if err := db.SaveCars(ctx, cars); err != nil {
		return fmt.Errorf("save cars: %w", err)
	}

	counts := make(map[rental.Category]int)
	for _, c := range cars {
		counts[c.Category]++
	}
	for _, cat := range rental.Categories {
		if n := counts[cat]; n > 0 {
			fmt.Printf("✅ %-8s %d cars\n", cat.Label(), n)
		}
	}
	log.WithField("cars", len(cars)).WithField("forced", force).Info("Fleet seeded")
	return nil
}

// parseCategories splits a comma-separated list. Unknown names are an error.
func parseCategories(s string) ([]rental.Category, error) {
	out := []rental.Category{}
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := rental.ParseCategory(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// filterFleet keeps cars in the given categories. An empty filter keeps all.
func filterFleet(fleet []storage.Car, categories []rental.Category) []storage.Car {
	if len(categories) == 0 {
		return fleet
	}
	keep := make(map[rental.Category]bool, len(categories))
	for _, c := range categories {
		keep[c] = true
	}
	var out []storage.Car
	for _, car := range fleet {
		if keep[car.Category] {
			out = append(out, car)
		}
	}
	return out
}
