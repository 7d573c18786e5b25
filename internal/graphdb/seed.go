package graphdb

import (
	"context"
	"fmt"

	"graphrag/internal/logging"
	"graphrag/internal/schema"
)

// Seed loads the Nobel-scholar demo graph used by the CLI and the examples
// corpus. Idempotent on the catalog, additive on the data, so callers should
// seed a fresh database.
func Seed(ctx context.Context, s *Store) error {
	timer := logging.StartTimer(logging.CategoryStore, "Seed")
	defer timer.Stop()

	nodeTables := []struct {
		label string
		props []schema.Property
	}{
		{"Scholar", []schema.Property{
			{Name: "name", Type: "STRING"},
			{Name: "knownFor", Type: "STRING"},
		}},
		{"Prize", []schema.Property{
			{Name: "category", Type: "STRING"},
			{Name: "year", Type: "INT64"},
		}},
		{"Institution", []schema.Property{
			{Name: "name", Type: "STRING"},
			{Name: "country", Type: "STRING"},
		}},
	}
	for _, nt := range nodeTables {
		if err := s.DefineNodeTable(ctx, nt.label, nt.props); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	if err := s.DefineRelTable(ctx, "WON", "Scholar", "Prize", nil); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := s.DefineRelTable(ctx, "AFFILIATED_WITH", "Scholar", "Institution", nil); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	scholars := []map[string]interface{}{
		{"name": "Marie Curie", "knownFor": "radioactivity research"},
		{"name": "Albert Einstein", "knownFor": "photoelectric effect"},
		{"name": "Richard Feynman", "knownFor": "quantum electrodynamics"},
		{"name": "Barbara McClintock", "knownFor": "mobile genetic elements"},
		{"name": "Linus Pauling", "knownFor": "chemical bond theory"},
	}
	prizes := []map[string]interface{}{
		{"category": "Physics", "year": 1903},
		{"category": "Chemistry", "year": 1911},
		{"category": "Physics", "year": 1921},
		{"category": "Physics", "year": 1965},
		{"category": "Medicine", "year": 1983},
		{"category": "Chemistry", "year": 1954},
		{"category": "Peace", "year": 1962},
	}
	institutions := []map[string]interface{}{
		{"name": "University of Paris", "country": "France"},
		{"name": "Princeton", "country": "USA"},
		{"name": "Caltech", "country": "USA"},
		{"name": "Cold Spring Harbor", "country": "USA"},
	}

	scholarIDs := make([]int64, len(scholars))
	for i, props := range scholars {
		id, err := s.InsertNode(ctx, "Scholar", props)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		scholarIDs[i] = id
	}
	prizeIDs := make([]int64, len(prizes))
	for i, props := range prizes {
		id, err := s.InsertNode(ctx, "Prize", props)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		prizeIDs[i] = id
	}
	instIDs := make([]int64, len(institutions))
	for i, props := range institutions {
		id, err := s.InsertNode(ctx, "Institution", props)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		instIDs[i] = id
	}

	won := [][2]int{
		{0, 0}, {0, 1}, // Curie: Physics 1903, Chemistry 1911
		{1, 2},         // Einstein: Physics 1921
		{2, 3},         // Feynman: Physics 1965
		{3, 4},         // McClintock: Medicine 1983
		{4, 5}, {4, 6}, // Pauling: Chemistry 1954, Peace 1962
	}
	for _, w := range won {
		if err := s.InsertEdge(ctx, "WON", scholarIDs[w[0]], prizeIDs[w[1]], nil); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	affiliated := [][2]int{
		{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 2},
	}
	for _, a := range affiliated {
		if err := s.InsertEdge(ctx, "AFFILIATED_WITH", scholarIDs[a[0]], instIDs[a[1]], nil); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	logging.Store("seeded demo graph: %d scholars, %d prizes, %d institutions",
		len(scholars), len(prizes), len(institutions))
	return nil
}
