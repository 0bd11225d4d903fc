package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"critbot/internal/logging"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store is a persistent key/value preferences store backed by SQLite.
// Several processes may open the same file; Watch reports their writes.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create preferences table: %w", err)
	}

	logging.Store("Opened preferences store at %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize seeds install-time defaults for keys that are absent.
// Existing values are never overwritten.
func (s *Store) Initialize(ctx context.Context) error {
	d := DefaultSettings()
	seed := map[string]any{
		KeyEnabled:       d.Enabled,
		KeyPopupDelay:    d.PopupDelaySeconds,
		KeyCategories:    d.Categories,
		KeyTotalPrompts:  0,
		KeyUserResponses: 0,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	seeded := 0
	for key, value := range seed {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO preferences (key, value, updated_at) VALUES (?, ?, ?)`,
			key, string(raw), now)
		if err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			seeded++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if seeded > 0 {
		logging.Store("Seeded %d default preferences", seeded)
	}
	return nil
}

// Get returns the raw JSON values for keys. Absent keys are omitted.
// With no keys, every stored value is returned.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	query := `SELECT key, value FROM preferences`
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		query += ` WHERE key IN (?` + strings.Repeat(`, ?`, len(keys)-1) + `)`
		for _, k := range keys {
			args = append(args, k)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// Set stores each value as JSON in a single transaction.
func (s *Store) Set(ctx context.Context, values map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, string(raw), now); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logging.StoreDebug("Set %d preference(s)", len(values))
	return nil
}

// LoadSettings reads Settings, applying defaults for absent or unreadable keys.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	raw, err := s.Get(ctx, SettingKeys...)
	if err != nil {
		return DefaultSettings(), err
	}

	out := DefaultSettings()
	decode := func(key string, dst any) {
		v, ok := raw[key]
		if !ok {
			return
		}
		if err := json.Unmarshal(v, dst); err != nil {
			logging.StoreWarn("Ignoring malformed preference %s=%s: %v", key, string(v), err)
		}
	}
	decode(KeyEnabled, &out.Enabled)
	decode(KeyPopupDelay, &out.PopupDelaySeconds)
	decode(KeyCategories, &out.Categories)
	decode(KeyAutoGenerate, &out.AutoGenerate)
	decode(KeyProvider, &out.Provider)
	decode(KeyModel, &out.Model)
	decode(KeyAPIKey, &out.APIKey)
	decode(KeyAutoSend, &out.AutoSend)

	if out.PopupDelaySeconds < 0 {
		out.PopupDelaySeconds = 0
	}
	return out, nil
}

// SaveSettings writes every Settings key.
func (s *Store) SaveSettings(ctx context.Context, st Settings) error {
	return s.Set(ctx, map[string]any{
		KeyEnabled:      st.Enabled,
		KeyPopupDelay:   st.PopupDelaySeconds,
		KeyCategories:   st.Categories,
		KeyAutoGenerate: st.AutoGenerate,
		KeyProvider:     st.Provider,
		KeyModel:        st.Model,
		KeyAPIKey:       st.APIKey,
		KeyAutoSend:     st.AutoSend,
	})
}

// Stats reads the usage counters.
func (s *Store) Stats(ctx context.Context) (UsageStats, error) {
	raw, err := s.Get(ctx, KeyTotalPrompts, KeyUserResponses)
	if err != nil {
		return UsageStats{}, err
	}
	var st UsageStats
	if v, ok := raw[KeyTotalPrompts]; ok {
		_ = json.Unmarshal(v, &st.TotalPrompts)
	}
	if v, ok := raw[KeyUserResponses]; ok {
		_ = json.Unmarshal(v, &st.UserResponses)
	}
	return st, nil
}

// IncrementTotalPrompts adds one detection to the counters.
func (s *Store) IncrementTotalPrompts(ctx context.Context) (UsageStats, error) {
	return s.increment(ctx, KeyTotalPrompts)
}

// IncrementUserResponses adds one user engagement to the counters.
func (s *Store) IncrementUserResponses(ctx context.Context) (UsageStats, error) {
	return s.increment(ctx, KeyUserResponses)
}

// increment is a single upsert statement so concurrent writers never lose an update.
func (s *Store) increment(ctx context.Context, key string) (UsageStats, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, '1', ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = CAST(CAST(preferences.value AS INTEGER) + 1 AS TEXT),
		   updated_at = excluded.updated_at`,
		key, time.Now().UnixMilli()); err != nil {
		return UsageStats{}, fmt.Errorf("increment %s: %w", key, err)
	}
	return s.Stats(ctx)
}

// ResetStats zeroes both usage counters.
func (s *Store) ResetStats(ctx context.Context) error {
	return s.Set(ctx, map[string]any{KeyTotalPrompts: 0, KeyUserResponses: 0})
}
