package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nextstep-care/platform/internal/shared/errors"
)

// PostgresRepository stores the audit log in an append-only table.
// The last hash is cached in memory under a mutex so concurrent
// appends chain correctly.
type PostgresRepository struct {
	pool     *pgxpool.Pool
	mu       sync.Mutex
	lastHash string
}

// NewPostgresRepository creates the repository and ensures the schema
// exists.
func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresRepository, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS audit_entries (
			sequence       BIGSERIAL PRIMARY KEY,
			id             TEXT NOT NULL UNIQUE,
			timestamp      TIMESTAMPTZ NOT NULL,
			hash           TEXT NOT NULL,
			prev_hash      TEXT NOT NULL DEFAULT '',
			actor_type     TEXT NOT NULL,
			actor_id       TEXT NOT NULL DEFAULT '',
			action         TEXT NOT NULL,
			resource_type  TEXT NOT NULL,
			resource_id    TEXT NOT NULL DEFAULT '',
			changes        JSONB,
			correlation_id TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS audit_entries_action_idx ON audit_entries (action);
		CREATE INDEX IF NOT EXISTS audit_entries_resource_idx ON audit_entries (resource_type, resource_id);
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT hash FROM audit_entries
		ORDER BY sequence DESC
		LIMIT 1
	`).Scan(&hash)
	if err != nil && !strings.Contains(err.Error(), "no rows") {
		return errors.Wrap(err, "load last audit hash")
	}

	r.lastHash = hash
	return nil
}

func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.PrevHash = r.lastHash
	entry.Hash = entry.calculateHash()

	changesJSON, err := json.Marshal(entry.Changes)
	if err != nil {
		return errors.Wrap(err, "marshal audit changes")
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO audit_entries (
			id, timestamp, hash, prev_hash,
			actor_type, actor_id, action, resource_type, resource_id,
			changes, correlation_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING sequence
	`, entry.ID, entry.Timestamp, entry.Hash, entry.PrevHash,
		entry.ActorType, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID,
		changesJSON, entry.CorrelationID,
	).Scan(&entry.Sequence)
	if err != nil {
		return errors.Wrap(err, "append audit entry")
	}

	r.lastHash = entry.Hash
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	var conditions []string
	var args []any
	argNum := 1

	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action LIKE $%d", argNum))
		args = append(args, filter.Action+"%")
		argNum++
	}
	if filter.ResourceType != "" {
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", argNum))
		args = append(args, filter.ResourceType)
		argNum++
	}
	if filter.ResourceID != "" {
		conditions = append(conditions, fmt.Sprintf("resource_id = $%d", argNum))
		args = append(args, filter.ResourceID)
		argNum++
	}
	if filter.StartTime != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", argNum))
		args = append(args, *filter.StartTime)
		argNum++
	}
	if filter.EndTime != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", argNum))
		args = append(args, *filter.EndTime)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count audit entries")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT sequence, id, timestamp, hash, prev_hash,
		       actor_type, actor_id, action, resource_type, resource_id,
		       changes, correlation_id
		FROM audit_entries %s
		ORDER BY sequence DESC
		LIMIT $%d OFFSET $%d
	`, where, argNum, argNum+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list audit entries")
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		var changesJSON []byte
		if err := rows.Scan(
			&entry.Sequence, &entry.ID, &entry.Timestamp, &entry.Hash, &entry.PrevHash,
			&entry.ActorType, &entry.ActorID, &entry.Action, &entry.ResourceType, &entry.ResourceID,
			&changesJSON, &entry.CorrelationID,
		); err != nil {
			return nil, 0, errors.Wrap(err, "scan audit entry")
		}
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &entry.Changes); err != nil {
				return nil, 0, errors.Wrap(err, "decode audit changes")
			}
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_entries").Scan(&total); err != nil {
		return 0, errors.Wrap(err, "count audit entries")
	}
	return total, nil
}

func (r *PostgresRepository) VerifyChain(ctx context.Context, limit int) (*VerifyResult, error) {
	query := `
		SELECT sequence, id, timestamp, hash, prev_hash,
		       actor_type, actor_id, action, resource_type, resource_id,
		       changes, correlation_id
		FROM audit_entries
		ORDER BY sequence ASC
	`
	if limit > 0 {
		// Take the newest N but keep ascending order for linkage checks.
		query = fmt.Sprintf(`
			SELECT * FROM (
				SELECT sequence, id, timestamp, hash, prev_hash,
				       actor_type, actor_id, action, resource_type, resource_id,
				       changes, correlation_id
				FROM audit_entries
				ORDER BY sequence DESC
				LIMIT %d
			) recent ORDER BY sequence ASC
		`, limit)
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "load audit chain")
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		var changesJSON []byte
		if err := rows.Scan(
			&entry.Sequence, &entry.ID, &entry.Timestamp, &entry.Hash, &entry.PrevHash,
			&entry.ActorType, &entry.ActorID, &entry.Action, &entry.ResourceType, &entry.ResourceID,
			&changesJSON, &entry.CorrelationID,
		); err != nil {
			return nil, errors.Wrap(err, "scan audit entry")
		}
		if len(changesJSON) > 0 {
			if err := json.Unmarshal(changesJSON, &entry.Changes); err != nil {
				return nil, errors.Wrap(err, "decode audit changes")
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read audit chain")
	}
	return verifyEntries(entries), nil
}

func (r *PostgresRepository) LastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

var _ Repository = (*PostgresRepository)(nil)
var _ Repository = (*MemoryRepository)(nil)
