package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/saeedalam/radscribe/pkg/types"
)

var (
	// ErrMacroNotFound is returned when no macro has the requested ID
	ErrMacroNotFound = errors.New("macro not found")
	// ErrInvalidMacro is returned when a macro is missing its name or text
	ErrInvalidMacro = errors.New("invalid macro")
)

// MacroStore persists personal and global macros in SQLite
type MacroStore struct {
	db       *sql.DB
	basePath string
}

// ListOptions filters MacroStore.List
type ListOptions struct {
	Owner         string // personal macros of this owner; empty lists none
	IncludeGlobal bool
	ActiveOnly    bool
}

// NewMacroStore opens (and creates if needed) the macro database under basePath
func NewMacroStore(basePath string) (*MacroStore, error) {
	dbPath := filepath.Join(basePath, "cache", "macros.db")

	// Ensure cache directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single writer keeps SQLite lock handling simple
	db.SetMaxOpenConns(1)

	s := &MacroStore{
		db:       db,
		basePath: basePath,
	}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *MacroStore) createTables() error {
	schema := `
	-- Macros table; names are not unique on purpose
	CREATE TABLE IF NOT EXISTS macros (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		replacement_text TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		is_global INTEGER NOT NULL DEFAULT 0,
		is_smart INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER,
		updated_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_macros_owner ON macros(owner);
	CREATE INDEX IF NOT EXISTS idx_macros_global ON macros(is_global);

	-- Context expansions, ordered per macro
	CREATE TABLE IF NOT EXISTS context_expansions (
		macro_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		body_part TEXT NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (macro_id, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *MacroStore) Close() error {
	return s.db.Close()
}

// BasePath returns the directory the store lives under
func (s *MacroStore) BasePath() string {
	return s.basePath
}

type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// WithTransaction runs a function within a SQLite transaction
func (s *MacroStore) WithTransaction(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// --- Writes ---

// Create inserts a new macro, assigning its ID and timestamps
func (s *MacroStore) Create(m *types.Macro) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		return s.CreateTx(tx, m)
	})
}

// CreateTx inserts a macro within a transaction
func (s *MacroStore) CreateTx(tx *sql.Tx, m *types.Macro) error {
	if err := validateMacro(m); err != nil {
		return err
	}

	now := time.Now()
	if m.ID == "" {
		m.ID = generateID("mac")
	}
	if m.IsGlobal {
		m.Owner = ""
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := tx.Exec(`
		INSERT INTO macros (id, name, replacement_text, owner, is_active, is_global, is_smart, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.ReplacementText, m.Owner, boolInt(m.IsActive), boolInt(m.IsGlobal),
		boolInt(m.IsSmartMacro), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("insert macro %q: %w", m.Name, err)
	}

	return writeExpansions(tx, m.ID, m.ContextExpansions)
}

// Update replaces every mutable field of an existing macro
func (s *MacroStore) Update(m *types.Macro) error {
	if err := validateMacro(m); err != nil {
		return err
	}

	return s.WithTransaction(func(tx *sql.Tx) error {
		if m.IsGlobal {
			m.Owner = ""
		}
		m.UpdatedAt = time.Now()

		res, err := tx.Exec(`
			UPDATE macros
			SET name = ?, replacement_text = ?, owner = ?, is_active = ?, is_global = ?, is_smart = ?, updated_at = ?
			WHERE id = ?
		`, m.Name, m.ReplacementText, m.Owner, boolInt(m.IsActive), boolInt(m.IsGlobal),
			boolInt(m.IsSmartMacro), m.UpdatedAt.Unix(), m.ID)
		if err != nil {
			return err
		}
		if err := requireRow(res, m.ID); err != nil {
			return err
		}

		if _, err := tx.Exec(`DELETE FROM context_expansions WHERE macro_id = ?`, m.ID); err != nil {
			return err
		}
		return writeExpansions(tx, m.ID, m.ContextExpansions)
	})
}

// SetActive toggles whether a macro takes part in expansion
func (s *MacroStore) SetActive(id string, active bool) error {
	res, err := s.db.Exec(`UPDATE macros SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolInt(active), nowUnix(), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// Delete removes a macro and its context expansions
func (s *MacroStore) Delete(id string) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM macros WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if err := requireRow(res, id); err != nil {
			return err
		}
		_, err = tx.Exec(`DELETE FROM context_expansions WHERE macro_id = ?`, id)
		return err
	})
}

// --- Reads ---

// Get returns one macro by ID
func (s *MacroStore) Get(id string) (*types.Macro, error) {
	rows, err := s.db.Query(`
		SELECT id, name, replacement_text, owner, is_active, is_global, is_smart, created_at, updated_at
		FROM macros WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	macros, err := s.scanMacros(rows)
	if err != nil {
		return nil, err
	}
	if len(macros) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMacroNotFound, id)
	}
	return &macros[0], nil
}

// List returns macros matching opts in registry order: personal macros
// first, then global, each in insertion order.
func (s *MacroStore) List(opts ListOptions) ([]types.Macro, error) {
	var clauses []string
	var args []any

	var scope []string
	if opts.Owner != "" {
		scope = append(scope, "(is_global = 0 AND owner = ?)")
		args = append(args, opts.Owner)
	}
	if opts.IncludeGlobal {
		scope = append(scope, "is_global = 1")
	}
	if len(scope) == 0 {
		return []types.Macro{}, nil
	}
	clauses = append(clauses, "("+strings.Join(scope, " OR ")+")")

	if opts.ActiveOnly {
		clauses = append(clauses, "is_active = 1")
	}

	query := `
		SELECT id, name, replacement_text, owner, is_active, is_global, is_smart, created_at, updated_at
		FROM macros
		WHERE ` + strings.Join(clauses, " AND ") + `
		ORDER BY is_global ASC, rowid ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return s.scanMacros(rows)
}

// ListPersonal returns every personal macro of owner, active or not
func (s *MacroStore) ListPersonal(owner string) ([]types.Macro, error) {
	return s.List(ListOptions{Owner: owner})
}

// ListGlobal returns every global macro, active or not
func (s *MacroStore) ListGlobal() ([]types.Macro, error) {
	return s.List(ListOptions{IncludeGlobal: true})
}

// FindByName returns the owner's personal and global macros with the given
// trigger, compared case-insensitively.
func (s *MacroStore) FindByName(owner, name string) ([]types.Macro, error) {
	all, err := s.List(ListOptions{Owner: owner, IncludeGlobal: true})
	if err != nil {
		return nil, err
	}

	var found []types.Macro
	for _, m := range all {
		if strings.EqualFold(m.Name, name) {
			found = append(found, m)
		}
	}
	return found, nil
}

// GetStats returns row counts for status output
func (s *MacroStore) GetStats() (map[string]int, error) {
	stats := make(map[string]int)

	queries := map[string]string{
		"macros":             "SELECT COUNT(*) FROM macros",
		"active":             "SELECT COUNT(*) FROM macros WHERE is_active = 1",
		"global":             "SELECT COUNT(*) FROM macros WHERE is_global = 1",
		"smart":              "SELECT COUNT(*) FROM macros WHERE is_smart = 1",
		"context_expansions": "SELECT COUNT(*) FROM context_expansions",
	}

	for name, query := range queries {
		var count int
		if err := s.db.QueryRow(query).Scan(&count); err != nil {
			return nil, err
		}
		stats[name] = count
	}

	return stats, nil
}

func (s *MacroStore) scanMacros(rows *sql.Rows) ([]types.Macro, error) {
	defer rows.Close()

	macros := []types.Macro{}
	for rows.Next() {
		var m types.Macro
		var active, global, smart int
		var created, updated sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.ReplacementText, &m.Owner,
			&active, &global, &smart, &created, &updated); err != nil {
			return nil, err
		}
		m.IsActive = active == 1
		m.IsGlobal = global == 1
		m.IsSmartMacro = smart == 1
		if created.Valid {
			m.CreatedAt = time.Unix(created.Int64, 0)
		}
		if updated.Valid {
			m.UpdatedAt = time.Unix(updated.Int64, 0)
		}
		macros = append(macros, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range macros {
		exps, err := loadExpansions(s.db, macros[i].ID)
		if err != nil {
			return nil, err
		}
		macros[i].ContextExpansions = exps
	}
	return macros, nil
}

func loadExpansions(q queryer, macroID string) ([]types.ContextExpansion, error) {
	rows, err := q.Query(`
		SELECT body_part, text FROM context_expansions
		WHERE macro_id = ?
		ORDER BY position ASC
	`, macroID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exps []types.ContextExpansion
	for rows.Next() {
		var ce types.ContextExpansion
		if err := rows.Scan(&ce.BodyPart, &ce.Text); err != nil {
			return nil, err
		}
		exps = append(exps, ce)
	}
	return exps, rows.Err()
}

func writeExpansions(q queryer, macroID string, exps []types.ContextExpansion) error {
	for i, ce := range exps {
		if _, err := q.Exec(`
			INSERT INTO context_expansions (macro_id, position, body_part, text)
			VALUES (?, ?, ?, ?)
		`, macroID, i, ce.BodyPart, ce.Text); err != nil {
			return fmt.Errorf("insert context expansion %q: %w", ce.BodyPart, err)
		}
	}
	return nil
}

func validateMacro(m *types.Macro) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMacro)
	}
	if m.ReplacementText == "" {
		return fmt.Errorf("%w: replacement text is required for %q", ErrInvalidMacro, m.Name)
	}
	if !m.IsGlobal && m.Owner == "" {
		return fmt.Errorf("%w: personal macro %q needs an owner", ErrInvalidMacro, m.Name)
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrMacroNotFound, id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowUnix() int64 {
	return time.Now().Unix()
}
