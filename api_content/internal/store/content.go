package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Charge is one billable model call. Content is persisted alongside the usage
// row when set.
type Charge struct {
	UserID  string
	Usage   TokenUsage
	Content *GeneratedContent
}

// ChargeResult reports what a successful charge wrote.
type ChargeResult struct {
	RemainingCredits int64
	UsageID          string
	ContentID        string
	CreatedAt        time.Time
}

// ChargeUsage debits Usage.TotalTokens credits and records the usage (and
// content) in one transaction. The debit is a single guarded UPDATE, so
// concurrent charges can never take credits below zero; when the balance is
// short nothing is written and ErrInsufficientCredits is returned.
func (s *Store) ChargeUsage(ctx context.Context, c Charge) (ChargeResult, error) {
	cost := int64(c.Usage.TotalTokens)
	if cost < 0 {
		return ChargeResult{}, fmt.Errorf("charge usage: negative cost %d", cost)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("charge usage: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var result ChargeResult
	err = tx.QueryRowContext(ctx, `
		UPDATE users SET credits = credits - $1, updated_at = NOW()
		WHERE id = $2 AND credits >= $1
		RETURNING credits`, cost, c.UserID).Scan(&result.RemainingCredits)
	if errors.Is(err, sql.ErrNoRows) {
		return ChargeResult{}, ErrInsufficientCredits
	}
	if err != nil {
		return ChargeResult{}, fmt.Errorf("charge usage: debit: %w", err)
	}

	result.UsageID = uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO token_usage (id, user_id, model, operation, prompt_tokens, completion_tokens, total_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		result.UsageID, c.UserID, c.Usage.Model, c.Usage.Operation,
		c.Usage.PromptTokens, c.Usage.CompletionTokens, c.Usage.TotalTokens)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("charge usage: record usage: %w", err)
	}

	if c.Content != nil {
		result.ContentID = uuid.New().String()
		err = tx.QueryRowContext(ctx, `
			INSERT INTO generated_content (id, user_id, document_id, platform, tone, content, tokens_used, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			RETURNING created_at`,
			result.ContentID, c.UserID, c.Content.DocumentID, c.Content.Platform, c.Content.Tone,
			[]byte(c.Content.Content), c.Usage.TotalTokens).Scan(&result.CreatedAt)
		if err != nil {
			return ChargeResult{}, fmt.Errorf("charge usage: record content: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ChargeResult{}, fmt.Errorf("charge usage: commit: %w", err)
	}
	return result, nil
}

const contentColumns = `id, user_id, document_id, platform, tone, content, tokens_used, created_at`

func scanContent(row rowScanner) (GeneratedContent, error) {
	var (
		c     GeneratedContent
		docID sql.NullString
		raw   []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &docID, &c.Platform, &c.Tone, &raw, &c.TokensUsed, &c.CreatedAt); err != nil {
		return GeneratedContent{}, err
	}
	if docID.Valid {
		c.DocumentID = &docID.String
	}
	c.Content = json.RawMessage(raw)
	return c, nil
}

// ListContent returns the user's generations, newest first, optionally for
// one platform.
func (s *Store) ListContent(ctx context.Context, userID, platform string, limit, offset int) ([]GeneratedContent, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contentColumns+` FROM generated_content
		WHERE user_id = $1 AND ($2 = '' OR platform = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, userID, platform, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	out := []GeneratedContent{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetContent(ctx context.Context, userID, id string) (GeneratedContent, error) {
	c, err := scanContent(s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM generated_content WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return GeneratedContent{}, notFound(err)
	}
	return c, nil
}

func (s *Store) DeleteContent(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generated_content WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return notFound(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
