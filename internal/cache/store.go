package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Namespace is a logical partition key separating independent cached
// values. Each namespace holds at most one entry.
type Namespace string

const (
	// NamespaceRecipes holds the last fetched recipe listing. Entries
	// expire DefaultRecipeTTL after they are written.
	NamespaceRecipes Namespace = "recipes"

	// NamespaceChatHistory holds the chat transcript. Entries never
	// expire; they persist until explicitly invalidated.
	NamespaceChatHistory Namespace = "chat_history"
)

// DefaultRecipeTTL is how long a cached recipe listing stays fresh.
const DefaultRecipeTTL = 24 * time.Hour

// Store is a TTL-bounded namespaced key-value store backed by a local
// SQLite database. Expired entries are indistinguishable from missing
// ones on read; the caller decides whether to refetch and re-Put.
type Store struct {
	db     *sqlx.DB
	ttls   map[Namespace]time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewStore opens (or creates) the cache database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{
		db: db,
		ttls: map[Namespace]time.Duration{
			NamespaceRecipes:     DefaultRecipeTTL,
			NamespaceChatHistory: 0,
		},
		now:    time.Now,
		logger: logger,
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetTTL overrides the expiry policy for a namespace. A zero or
// negative duration disables expiry.
func (s *Store) SetTTL(ns Namespace, ttl time.Duration) {
	s.ttls[ns] = ttl
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Put serializes v and writes it with the current timestamp, replacing
// any prior entry for the namespace. A failed write leaves previously
// committed data untouched; the error is returned for the caller to
// decide on a retry.
func (s *Store) Put(ctx context.Context, ns Namespace, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", ns, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache_entries (namespace, payload, stored_at)
		VALUES (?, ?, ?)`,
		string(ns), string(payload), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", ns, err)
	}

	return nil
}

// Get loads the entry for ns into out and reports whether a value was
// found. It returns false when no entry exists, when the namespace's
// TTL has elapsed, or when the payload cannot be decoded; none of those
// conditions surfaces as an error.
func (s *Store) Get(ctx context.Context, ns Namespace, out interface{}) bool {
	payload, storedAt, ok := s.read(ctx, ns)
	if !ok {
		return false
	}
	if s.expired(ns, storedAt) {
		return false
	}
	return s.decode(ns, payload, out)
}

// GetStale behaves like Get but ignores expiry. Used to serve the last
// known listing when a refresh fails.
func (s *Store) GetStale(ctx context.Context, ns Namespace, out interface{}) bool {
	payload, _, ok := s.read(ctx, ns)
	if !ok {
		return false
	}
	return s.decode(ns, payload, out)
}

// IsValid reports whether an entry exists and is unexpired without
// decoding the payload. A corrupt-but-present entry still reports valid
// here; its corruption is only discovered at Get time.
func (s *Store) IsValid(ctx context.Context, ns Namespace) bool {
	var storedAt time.Time
	err := s.db.GetContext(ctx, &storedAt,
		"SELECT stored_at FROM cache_entries WHERE namespace = ?", string(ns),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		s.logger.Warn("reading cache timestamp",
			"namespace", string(ns), "error", err)
		return false
	}
	return !s.expired(ns, storedAt)
}

// Invalidate deletes the entry and its timestamp unconditionally.
func (s *Store) Invalidate(ctx context.Context, ns Namespace) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE namespace = ?", string(ns),
	)
	if err != nil {
		return fmt.Errorf("invalidating cache entry %s: %w", ns, err)
	}
	return nil
}

// read fetches the raw row for a namespace.
func (s *Store) read(ctx context.Context, ns Namespace) (string, time.Time, bool) {
	var row struct {
		Payload  string    `db:"payload"`
		StoredAt time.Time `db:"stored_at"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT payload, stored_at FROM cache_entries WHERE namespace = ?", string(ns),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, false
	}
	if err != nil {
		s.logger.Warn("reading cache entry",
			"namespace", string(ns), "error", err)
		return "", time.Time{}, false
	}
	return row.Payload, row.StoredAt, true
}

// decode unmarshals a payload, degrading corruption to a miss.
func (s *Store) decode(ns Namespace, payload string, out interface{}) bool {
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		s.logger.Warn("corrupt cache payload treated as miss",
			"namespace", string(ns), "error", err)
		return false
	}
	return true
}

// expired applies the namespace's TTL policy to a stored timestamp.
func (s *Store) expired(ns Namespace, storedAt time.Time) bool {
	ttl := s.ttls[ns]
	if ttl <= 0 {
		return false
	}
	return s.now().UTC().Sub(storedAt) >= ttl
}
