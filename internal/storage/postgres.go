package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/faceaccess/internal/config"
	"github.com/your-org/faceaccess/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	return newPostgresStore(ctx, poolCfg)
}

// NewPostgresStoreFromURL connects using a full connection URL.
func NewPostgresStoreFromURL(ctx context.Context, url string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	return newPostgresStore(ctx, poolCfg)
}

func newPostgresStore(ctx context.Context, poolCfg *pgxpool.Config) (*PostgresStore, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// wrapErr marks connectivity failures with models.ErrStoreUnavailable.
// Errors reported by the server itself (constraint violations, bad SQL) are only wrapped.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}

// --- Persons ---

// ListPersons returns every person that has at least one embedding, in
// enrollment order, with embeddings in stored order.
func (s *PostgresStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.name, p.source_key, p.created_at, p.updated_at, fe.embedding
		FROM persons p
		JOIN face_embeddings fe ON fe.person_id = p.id
		ORDER BY p.created_at, p.id, fe.position`)
	if err != nil {
		return nil, wrapErr("list persons", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		var vec pgvector.Vector
		if err := rows.Scan(&p.ID, &p.Name, &p.SourceKey, &p.CreatedAt, &p.UpdatedAt, &vec); err != nil {
			return nil, wrapErr("scan person", err)
		}
		if n := len(persons); n > 0 && persons[n-1].ID == p.ID {
			persons[n-1].Embeddings = append(persons[n-1].Embeddings, vec.Slice())
			continue
		}
		p.Embeddings = []models.Embedding{vec.Slice()}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list persons", err)
	}
	return persons, nil
}

// GetPersonByName returns nil when no person has exactly this name.
func (s *PostgresStore) GetPersonByName(ctx context.Context, name string) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, source_key, created_at, updated_at FROM persons WHERE name = $1`, name,
	).Scan(&p.ID, &p.Name, &p.SourceKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get person", err)
	}

	embs, err := s.listEmbeddings(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Embeddings = embs
	return p, nil
}

func (s *PostgresStore) listEmbeddings(ctx context.Context, personID uuid.UUID) ([]models.Embedding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT embedding FROM face_embeddings WHERE person_id = $1 ORDER BY position`, personID)
	if err != nil {
		return nil, wrapErr("list face embeddings", err)
	}
	defer rows.Close()

	var embs []models.Embedding
	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, wrapErr("scan face embedding", err)
		}
		embs = append(embs, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list face embeddings", err)
	}
	return embs, nil
}

// UpsertPerson creates the person or, when the name already exists, replaces
// its embedding set with p.Embeddings. Both happen in one transaction.
// p.ID and the timestamps are filled from the stored row.
func (s *PostgresStore) UpsertPerson(ctx context.Context, p *models.Person) (created bool, err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, wrapErr("begin upsert", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO persons (id, name, source_key) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			updated_at = now(),
			source_key = CASE WHEN EXCLUDED.source_key <> '' THEN EXCLUDED.source_key ELSE persons.source_key END
		RETURNING id, source_key, created_at, updated_at, (xmax = 0) AS inserted`,
		p.ID, p.Name, p.SourceKey,
	).Scan(&p.ID, &p.SourceKey, &p.CreatedAt, &p.UpdatedAt, &created)
	if err != nil {
		return false, wrapErr("upsert person", err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM face_embeddings WHERE person_id = $1`, p.ID); err != nil {
		return false, wrapErr("clear face embeddings", err)
	}

	batch := &pgx.Batch{}
	for i, emb := range p.Embeddings {
		batch.Queue(`INSERT INTO face_embeddings (person_id, position, embedding) VALUES ($1, $2, $3)`,
			p.ID, i, pgvector.NewVector(emb))
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, wrapErr("insert face embeddings", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return false, wrapErr("commit upsert", err)
	}
	return created, nil
}

// --- Access log ---

func (s *PostgresStore) AppendAccessLog(ctx context.Context, e *models.AccessLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access_log (id, person_id, name, recognized, distance, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.PersonID, e.Name, e.Recognized, e.Distance, e.Timestamp)
	if err != nil {
		return wrapErr("append access log", err)
	}
	return nil
}

// ListAccessLog returns one page of entries, newest first, and the total number of matching entries.
func (s *PostgresStore) ListAccessLog(ctx context.Context, q models.AccessLogQuery) ([]models.AccessLogEntry, int, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	offset := max(q.Offset, 0)

	where := "WHERE TRUE"
	var args []interface{}
	argIdx := 1

	if q.Recognized != nil {
		where += fmt.Sprintf(" AND recognized = $%d", argIdx)
		args = append(args, *q.Recognized)
		argIdx++
	}
	if q.PersonID != nil {
		where += fmt.Sprintf(" AND person_id = $%d", argIdx)
		args = append(args, *q.PersonID)
		argIdx++
	}
	if q.From != nil {
		where += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *q.From)
		argIdx++
	}
	if q.To != nil {
		where += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *q.To)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM access_log "+where, args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("count access log", err)
	}

	query := fmt.Sprintf(
		`SELECT id, person_id, name, recognized, distance, timestamp
		 FROM access_log %s ORDER BY timestamp DESC, id LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrapErr("query access log", err)
	}
	defer rows.Close()

	var entries []models.AccessLogEntry
	for rows.Next() {
		var e models.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.PersonID, &e.Name, &e.Recognized, &e.Distance, &e.Timestamp); err != nil {
			return nil, 0, wrapErr("scan access log", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr("query access log", err)
	}
	return entries, total, nil
}
