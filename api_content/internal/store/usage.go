package store

import (
	"context"
	"fmt"
	"time"
)

// ListTokenUsage returns usage rows since the given time, oldest first. A
// zero since returns everything.
func (s *Store) ListTokenUsage(ctx context.Context, userID string, since time.Time) ([]TokenUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, model, operation, prompt_tokens, completion_tokens, total_tokens, created_at
		FROM token_usage
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list token usage: %w", err)
	}
	defer rows.Close()

	var out []TokenUsage
	for rows.Next() {
		var u TokenUsage
		if err := rows.Scan(&u.ID, &u.UserID, &u.Model, &u.Operation, &u.PromptTokens, &u.CompletionTokens, &u.TotalTokens, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan token usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SummarizeUsage folds usage rows into totals. TotalTokens always equals the
// sum over ByModel and over ByOperation.
func SummarizeUsage(rows []TokenUsage) UsageSummary {
	sum := UsageSummary{
		ByModel:     map[string]UsageBucket{},
		ByOperation: map[string]UsageBucket{},
	}
	for _, r := range rows {
		tokens := int64(r.TotalTokens)
		sum.TotalTokens += tokens
		sum.TotalRequests++
		addBucket(sum.ByModel, orUnknown(r.Model), tokens)
		addBucket(sum.ByOperation, orUnknown(r.Operation), tokens)
	}
	return sum
}

func addBucket(m map[string]UsageBucket, key string, tokens int64) {
	b := m[key]
	b.Tokens += tokens
	b.Requests++
	m[key] = b
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func (s *Store) GetUsageSummary(ctx context.Context, userID string, since time.Time) (UsageSummary, error) {
	rows, err := s.ListTokenUsage(ctx, userID, since)
	if err != nil {
		return UsageSummary{}, err
	}
	return SummarizeUsage(rows), nil
}
