package main

// Loads a catalog seed file and upserts its categories and products, so the
// command is safe to re-run against an already seeded database.

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/khelmart/khelmart/internal/catalog"
	"github.com/khelmart/khelmart/internal/config"
	"github.com/khelmart/khelmart/internal/db"
	"github.com/khelmart/khelmart/internal/models"
)

func main() {
	seedPath := flag.String("file", "seed/catalog.yaml", "path to the catalog seed file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	content, err := os.ReadFile(*seedPath)
	if err != nil {
		logger.Error("failed to read seed file", "error", err, "file", *seedPath)
		os.Exit(1)
	}

	seed, err := catalog.NewParser().Parse(content)
	if err != nil {
		logger.Error("failed to parse seed file", "error", err, "file", *seedPath)
		os.Exit(1)
	}
	if err := catalog.NewValidator().Validate(seed); err != nil {
		logger.Error("seed file is invalid", "error", err, "file", *seedPath)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	categoryStore := db.NewCategoryStore(pool)
	productStore := db.NewProductStore(pool)

	categoryIDs := make(map[string]*models.Category, len(seed.Categories))
	for _, categorySeed := range seed.Categories {
		category := &models.Category{
			Name:        categorySeed.Name,
			Description: categorySeed.Description,
			ImageURL:    categorySeed.ImageURL,
		}
		if err := categoryStore.UpsertByName(ctx, category); err != nil {
			logger.Error("failed to upsert category", "error", err, "name", category.Name)
			os.Exit(1)
		}
		categoryIDs[category.Name] = category
		logger.Info("seeded category", "name", category.Name, "id", category.ID)
	}

	for _, productSeed := range seed.Products {
		product := &models.Product{
			Name:               productSeed.Name,
			Description:        productSeed.Description,
			Price:              productSeed.Price,
			OriginalPrice:      productSeed.OriginalPrice,
			DiscountPercentage: productSeed.DiscountPercentage,
			ImageURL:           productSeed.ImageURL,
			StockQuantity:      productSeed.StockQuantity,
			Brand:              productSeed.Brand,
			IsFeatured:         productSeed.IsFeatured,
		}
		if category, ok := categoryIDs[productSeed.Category]; ok {
			id := category.ID
			product.CategoryID = &id
		}
		if err := productStore.UpsertByName(ctx, product); err != nil {
			logger.Error("failed to upsert product", "error", err, "name", product.Name)
			os.Exit(1)
		}
		logger.Info("seeded product", "name", product.Name, "id", product.ID)
	}

	logger.Info("seed complete", "categories", len(seed.Categories), "products", len(seed.Products))
}
