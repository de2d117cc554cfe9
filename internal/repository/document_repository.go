package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
)

// DocumentRepository encapsulates knowledge-base document persistence.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

type documentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository instantiates repository.
func NewDocumentRepository(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepository{pool: pool}
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.Document) error {
	const query = `
        INSERT INTO documents (title, content, source)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, doc.Title, doc.Content, doc.Source).Scan(&doc.ID, &doc.CreatedAt)
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	const query = `SELECT id, title, content, source, created_at FROM documents WHERE id=$1`
	var doc domain.Document
	err := r.pool.QueryRow(ctx, query, id).Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Source, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, title, content, source, created_at FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Source, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
