// internal/samples/samples.go
package samples

import (
	"embed"

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

//go:embed scripts/*.sql
var scripts embed.FS

var catalog = []domain.SampleDataset{
	{
		Key:         "orders",
		Name:        "Order Database",
		Description: "Order System Database, with users, orders, product, and order_items table",
	},
	{
		Key:         "schools",
		Name:        "Schools Database",
		Description: "School management database with teachers and students data",
	},
}

// Catalog lists the importable sample datasets.
func Catalog() []domain.SampleDataset {
	out := make([]domain.SampleDataset, len(catalog))
	copy(out, catalog)
	return out
}

// Script returns the SQL that builds the sample dataset key.
func Script(key string) (string, error) {
	for _, s := range catalog {
		if s.Key != key {
			continue
		}
		b, err := scripts.ReadFile("scripts/" + key + ".sql")
		if err != nil {
			return "", domain.Errorf(domain.ErrNotFound, "sample dataset '%s' could not be loaded", key)
		}
		return string(b), nil
	}
	return "", domain.Errorf(domain.ErrNotFound, "sample dataset '%s' not found", key)
}
