// Package graphdb is the embedded property-graph store behind the pipeline.
// It keeps a catalog of node/relationship tables (the schema the pipeline
// retrieves and canonicalizes) plus the graph data itself in SQLite, and
// exposes the dry-run Explain check the query validator delegates to.
package graphdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"graphrag/internal/logging"
	"graphrag/internal/schema"
)

// Store is a SQLite-backed graph database. All access serializes behind an
// RWMutex; reads may proceed concurrently.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the store at the given path, creating the file and the
// catalog tables on first use.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set WAL mode: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("graph store ready at %s", path)
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS node_tables (
			label TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS node_properties (
			label TEXT NOT NULL,
			name  TEXT NOT NULL,
			type  TEXT NOT NULL,
			PRIMARY KEY (label, name)
		)`,
		`CREATE TABLE IF NOT EXISTS rel_tables (
			label      TEXT PRIMARY KEY,
			from_label TEXT NOT NULL,
			to_label   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rel_properties (
			label TEXT NOT NULL,
			name  TEXT NOT NULL,
			type  TEXT NOT NULL,
			PRIMARY KEY (label, name)
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			props TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			label   TEXT NOT NULL,
			from_id INTEGER NOT NULL REFERENCES nodes(id),
			to_id   INTEGER NOT NULL REFERENCES nodes(id),
			props   TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_label ON edges(label)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// DefineNodeTable registers a node label and its properties in the catalog.
func (s *Store) DefineNodeTable(ctx context.Context, label string, props []schema.Property) error {
	if label == "" {
		return fmt.Errorf("node table label must be non-empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO node_tables (label) VALUES (?)`, label); err != nil {
		return fmt.Errorf("failed to define node table %s: %w", label, err)
	}
	for _, p := range props {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO node_properties (label, name, type) VALUES (?, ?, ?)`,
			label, p.Name, p.Type); err != nil {
			return fmt.Errorf("failed to define property %s.%s: %w", label, p.Name, err)
		}
	}
	return nil
}

// DefineRelTable registers a relationship label with its endpoints and
// properties in the catalog.
func (s *Store) DefineRelTable(ctx context.Context, label, from, to string, props []schema.Property) error {
	if label == "" || from == "" || to == "" {
		return fmt.Errorf("rel table label/from/to must be non-empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rel_tables (label, from_label, to_label) VALUES (?, ?, ?)`,
		label, from, to); err != nil {
		return fmt.Errorf("failed to define rel table %s: %w", label, err)
	}
	for _, p := range props {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO rel_properties (label, name, type) VALUES (?, ?, ?)`,
			label, p.Name, p.Type); err != nil {
			return fmt.Errorf("failed to define property %s.%s: %w", label, p.Name, err)
		}
	}
	return nil
}

// InsertNode stores a node and returns its id.
func (s *Store) InsertNode(ctx context.Context, label string, props map[string]interface{}) (int64, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal node props: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO nodes (label, props) VALUES (?, ?)`, label, string(data))
	if err != nil {
		return 0, fmt.Errorf("failed to insert node: %w", err)
	}
	return res.LastInsertId()
}

// InsertEdge stores an edge between two node ids.
func (s *Store) InsertEdge(ctx context.Context, label string, fromID, toID int64, props map[string]interface{}) error {
	data, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("failed to marshal edge props: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (label, from_id, to_id, props) VALUES (?, ?, ?, ?)`,
		label, fromID, toID, string(data)); err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}
	return nil
}

// Schema reads the catalog and returns the graph schema. The result is
// deterministic for a given catalog regardless of row order because
// schema.Graph canonicalizes on use.
func (s *Store) Schema(ctx context.Context) (schema.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var g schema.Graph

	nodeRows, err := s.db.QueryContext(ctx, `SELECT label FROM node_tables ORDER BY label`)
	if err != nil {
		return g, fmt.Errorf("failed to read node catalog: %w", err)
	}
	defer nodeRows.Close()
	for nodeRows.Next() {
		var label string
		if err := nodeRows.Scan(&label); err != nil {
			return g, err
		}
		props, err := s.propsFor(ctx, "node_properties", label)
		if err != nil {
			return g, err
		}
		g.Nodes = append(g.Nodes, schema.Node{Label: label, Properties: props})
	}
	if err := nodeRows.Err(); err != nil {
		return g, err
	}

	relRows, err := s.db.QueryContext(ctx,
		`SELECT label, from_label, to_label FROM rel_tables ORDER BY label`)
	if err != nil {
		return g, fmt.Errorf("failed to read rel catalog: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var label, from, to string
		if err := relRows.Scan(&label, &from, &to); err != nil {
			return g, err
		}
		props, err := s.propsFor(ctx, "rel_properties", label)
		if err != nil {
			return g, err
		}
		g.Edges = append(g.Edges, schema.Edge{Label: label, From: from, To: to, Properties: props})
	}
	return g, relRows.Err()
}

// propsFor reads the property list for a label. Caller holds s.mu.
func (s *Store) propsFor(ctx context.Context, table, label string) ([]schema.Property, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT name, type FROM %s WHERE label = ? ORDER BY name`, table), label)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties for %s: %w", label, err)
	}
	defer rows.Close()

	var props []schema.Property
	for rows.Next() {
		var p schema.Property
		if err := rows.Scan(&p.Name, &p.Type); err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}
