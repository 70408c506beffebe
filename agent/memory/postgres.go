package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
)

// PostgresConfig configures the durable memory backend.
type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type memoryRecord struct {
	bun.BaseModel `bun:"table:memory_records,alias:mr"`

	ScopeKind string     `bun:"scope_kind,pk"`
	ScopeID   string     `bun:"scope_id,pk"`
	Key       string     `bun:"key,pk"`
	Value     string     `bun:"value,notnull"`
	WrittenAt time.Time  `bun:"written_at,notnull"`
	ExpiresAt *time.Time `bun:"expires_at"`
}

// PostgresStore persists memory records in Postgres through bun. Upserts
// replace the prior value atomically, so reads never observe a gap between
// delete and insert. Backend failures surface as ErrStorageUnavailable so
// the orchestrator can continue the turn on in-session context.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &PostgresStore{db: db, now: time.Now}, nil
}

// EnsureSchema creates the memory table if it does not exist. Called once
// at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*memoryRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: create memory table: %v", contractx.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, scope contractx.MemoryScope, key string) (contractx.MemoryRecord, error) {
	var rec memoryRecord
	err := s.db.NewSelect().
		Model(&rec).
		Where("scope_kind = ?", string(scope.Kind)).
		Where("scope_id = ?", scope.ID).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contractx.MemoryRecord{}, fmt.Errorf("%w: %s/%s", contractx.ErrMemoryNotFound, scope.Kind, key)
		}
		return contractx.MemoryRecord{}, fmt.Errorf("%w: get %s/%s: %v", contractx.ErrStorageUnavailable, scope.Kind, key, err)
	}

	out := toContractRecord(rec)
	if out.Expired(s.now()) {
		return contractx.MemoryRecord{}, fmt.Errorf("%w: %s/%s expired", contractx.ErrMemoryNotFound, scope.Kind, key)
	}
	return out, nil
}

func (s *PostgresStore) Set(ctx context.Context, scope contractx.MemoryScope, key, value string, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: memory key is empty", contractx.ErrValidation)
	}

	rec := memoryRecord{
		ScopeKind: string(scope.Kind),
		ScopeID:   scope.ID,
		Key:       key,
		Value:     value,
		WrittenAt: s.now().UTC(),
	}
	if ttl > 0 {
		expires := rec.WrittenAt.Add(ttl)
		rec.ExpiresAt = &expires
	}

	_, err := s.db.NewInsert().
		Model(&rec).
		On("CONFLICT (scope_kind, scope_id, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("written_at = EXCLUDED.written_at").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: set %s/%s: %v", contractx.ErrStorageUnavailable, scope.Kind, key, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, scope contractx.MemoryScope, prefix string) ([]contractx.MemoryRecord, error) {
	var recs []memoryRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("scope_kind = ?", string(scope.Kind)).
		Where("scope_id = ?", scope.ID).
		Where("?TableAlias.key LIKE ?", likePrefix(prefix)).
		Order("key ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s/%s*: %v", contractx.ErrStorageUnavailable, scope.Kind, prefix, err)
	}

	now := s.now()
	out := make([]contractx.MemoryRecord, 0, len(recs))
	for _, rec := range recs {
		cr := toContractRecord(rec)
		if !cr.Expired(now) {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func toContractRecord(rec memoryRecord) contractx.MemoryRecord {
	return contractx.MemoryRecord{
		Scope:     contractx.MemoryScope{Kind: contractx.ScopeKind(rec.ScopeKind), ID: rec.ScopeID},
		Key:       rec.Key,
		Value:     rec.Value,
		WrittenAt: rec.WrittenAt,
		ExpiresAt: rec.ExpiresAt,
	}
}

// likePrefix escapes LIKE metacharacters so a literal prefix match is sent
// to the database.
func likePrefix(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return escaped + "%"
}
