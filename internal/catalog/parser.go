package catalog

// Package catalog provides seed-file parsing for the product catalog.

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document loaded by cmd/seed to populate categories
// and products.
type SeedFile struct {
	Categories []CategorySeed `yaml:"categories"`
	Products   []ProductSeed  `yaml:"products"`
}

type CategorySeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	ImageURL    string `yaml:"image_url"`
}

type ProductSeed struct {
	Name               string   `yaml:"name"`
	Description        string   `yaml:"description"`
	Price              float64  `yaml:"price"`
	OriginalPrice      *float64 `yaml:"original_price"`
	DiscountPercentage int      `yaml:"discount_percentage"`
	ImageURL           string   `yaml:"image_url"`
	StockQuantity      int      `yaml:"stock_quantity"`
	Brand              string   `yaml:"brand"`
	Category           string   `yaml:"category"`
	IsFeatured         bool     `yaml:"is_featured"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(content, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &seed, nil
}
