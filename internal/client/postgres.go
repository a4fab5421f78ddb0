package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nextstep-care/platform/internal/shared/errors"
)

// PostgresStore keeps client records in a clients table with the full
// profile document in a jsonb column. Used when DB_ENABLED is set;
// deployments without Postgres fall back to the JSON file store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed client store and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS clients (
			id      BIGSERIAL PRIMARY KEY,
			email   TEXT,
			profile JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS clients_email_idx ON clients (LOWER(email));
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure clients schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var id int64
	var profile []byte
	if err := row.Scan(&id, &profile); err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(profile, &rec); err != nil {
		return nil, fmt.Errorf("decode client profile: %w", err)
	}
	rec.SetID(int(id))
	return rec, nil
}

// List returns all client records, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, profile FROM clients ORDER BY profile->>'createdAt' DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the record with the given identifier.
func (s *PostgresStore) Get(ctx context.Context, id int) (Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT id, profile FROM clients WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("client", fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	return rec, nil
}

// GetByEmail returns the record with a matching email, case-insensitive.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT id, profile FROM clients WHERE LOWER(email) = $1 LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email))))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("client", email)
	}
	if err != nil {
		return nil, fmt.Errorf("get client by email: %w", err)
	}
	return rec, nil
}

// Add persists the record and assigns the generated identifier.
func (s *PostgresStore) Add(ctx context.Context, rec Record) (Record, error) {
	profile, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode client profile: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO clients (email, profile) VALUES ($1, $2) RETURNING id`,
		rec.Email(), profile).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}

	rec.SetID(int(id))
	// Rewrite the profile so the stored document carries its id, matching
	// the file-store layout.
	profile, err = json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode client profile: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE clients SET profile = $1 WHERE id = $2`, profile, id); err != nil {
		return nil, fmt.Errorf("store client id: %w", err)
	}
	return rec, nil
}

// Update replaces the stored record with the same identifier.
func (s *PostgresStore) Update(ctx context.Context, rec Record) error {
	profile, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode client profile: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE clients SET email = $1, profile = $2 WHERE id = $3`,
		rec.Email(), profile, rec.ID())
	if err != nil {
		return fmt.Errorf("update client %d: %w", rec.ID(), err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("client", fmt.Sprintf("%d", rec.ID()))
	}
	return nil
}

// Delete removes and returns the record with the given identifier.
func (s *PostgresStore) Delete(ctx context.Context, id int) (Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete client %d: %w", id, err)
	}
	return rec, nil
}

var _ Store = (*PostgresStore)(nil)
