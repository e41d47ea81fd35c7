package catalog

import (
	"fmt"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(seed *SeedFile) error {
	if seed == nil {
		return fmt.Errorf("seed file is empty")
	}

	categories := make(map[string]bool)
	for i, category := range seed.Categories {
		name := strings.TrimSpace(category.Name)
		if name == "" {
			return fmt.Errorf("category %d: name is required", i)
		}
		if categories[name] {
			return fmt.Errorf("duplicate category: %s", name)
		}
		categories[name] = true
	}

	if len(seed.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	names := make(map[string]bool)
	for i, product := range seed.Products {
		if err := v.validateProduct(&product, categories); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}
		if names[product.Name] {
			return fmt.Errorf("duplicate product: %s", product.Name)
		}
		names[product.Name] = true
	}

	return nil
}

func (v *Validator) validateProduct(product *ProductSeed, categories map[string]bool) error {
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	if product.Price <= 0 {
		return fmt.Errorf("product price must be positive")
	}
	if product.OriginalPrice != nil && *product.OriginalPrice < product.Price {
		return fmt.Errorf("original price must not be below the sale price")
	}
	if product.DiscountPercentage < 0 || product.DiscountPercentage > 100 {
		return fmt.Errorf("discount percentage must be between 0 and 100")
	}
	if product.StockQuantity < 0 {
		return fmt.Errorf("stock quantity must be zero or positive")
	}
	if category := strings.TrimSpace(product.Category); category != "" && !categories[category] {
		return fmt.Errorf("unknown category: %s", category)
	}
	return nil
}
