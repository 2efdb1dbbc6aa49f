package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const documentColumns = `id, user_id, title, content, word_count, created_at, updated_at`

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.UserID, &d.Title, &d.Content, &d.WordCount, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *Store) CreateDocument(ctx context.Context, userID, title, content string) (Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, user_id, title, content, word_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+documentColumns,
		uuid.New().String(), userID, title, content, len(strings.Fields(content))))
	if err != nil {
		return Document{}, fmt.Errorf("create document: %w", err)
	}
	return d, nil
}

func (s *Store) ListDocuments(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocument only returns documents owned by userID.
func (s *Store) GetDocument(ctx context.Context, userID, id string) (Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return Document{}, notFound(err)
	}
	return d, nil
}

func (s *Store) DeleteDocument(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
