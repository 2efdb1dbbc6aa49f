package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

func (s *Store) UpsertPreferences(ctx context.Context, userID string, p Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		userID, data)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

// GetPreferences reports ok=false when the user never saved preferences.
func (s *Store) GetPreferences(ctx context.Context, userID string) (Preferences, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM user_preferences WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Preferences{}, false, nil
	}
	if err != nil {
		return Preferences{}, false, fmt.Errorf("get preferences: %w", err)
	}
	var p Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return Preferences{}, false, fmt.Errorf("decode preferences: %w", err)
	}
	return p, true, nil
}

type patternData struct {
	ContentType     string  `json:"contentType"`
	Structure       string  `json:"structure"`
	Summary         string  `json:"summary,omitempty"`
	EngagementScore float64 `json:"engagementScore"`
}

func (s *Store) InsertPattern(ctx context.Context, p ContentPattern) (ContentPattern, error) {
	data, err := json.Marshal(patternData{
		ContentType:     p.ContentType,
		Structure:       p.Structure,
		Summary:         p.Summary,
		EngagementScore: p.EngagementScore,
	})
	if err != nil {
		return ContentPattern{}, fmt.Errorf("marshal pattern: %w", err)
	}
	p.ID = uuid.New().String()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO content_patterns (id, user_id, platform, data, successful, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`, p.ID, p.UserID, p.Platform, data, p.Successful).Scan(&p.CreatedAt)
	if err != nil {
		return ContentPattern{}, fmt.Errorf("insert pattern: %w", err)
	}
	return p, nil
}

// ListSuccessfulPatterns returns successful patterns, newest first. An empty
// platform matches all platforms.
func (s *Store) ListSuccessfulPatterns(ctx context.Context, userID, platform string, limit int) ([]ContentPattern, error) {
	limit, _ = clampPage(limit, 0)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, platform, data, successful, created_at
		FROM content_patterns
		WHERE user_id = $1 AND successful AND ($2 = '' OR platform = $2)
		ORDER BY created_at DESC
		LIMIT $3`, userID, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer rows.Close()

	out := []ContentPattern{}
	for rows.Next() {
		var (
			p   ContentPattern
			raw []byte
			d   patternData
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Platform, &raw, &p.Successful, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode pattern: %w", err)
		}
		p.ContentType, p.Structure, p.Summary, p.EngagementScore = d.ContentType, d.Structure, d.Summary, d.EngagementScore
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) InsertFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	f.ID = uuid.New().String()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO content_feedback (id, user_id, content_id, rating, comments, platform, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at`, f.ID, f.UserID, f.ContentID, f.Rating, f.Comments, f.Platform).Scan(&f.CreatedAt)
	if err != nil {
		return Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return f, nil
}

func (s *Store) FeedbackSummary(ctx context.Context, userID string) (FeedbackSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, COUNT(*), AVG(rating)::float8
		FROM content_feedback
		WHERE user_id = $1
		GROUP BY platform`, userID)
	if err != nil {
		return FeedbackSummary{}, fmt.Errorf("feedback summary: %w", err)
	}
	defer rows.Close()

	sum := FeedbackSummary{ByPlatform: map[string]float64{}}
	var weighted float64
	for rows.Next() {
		var (
			platform string
			count    int64
			avg      float64
		)
		if err := rows.Scan(&platform, &count, &avg); err != nil {
			return FeedbackSummary{}, fmt.Errorf("scan feedback summary: %w", err)
		}
		sum.Count += count
		weighted += avg * float64(count)
		sum.ByPlatform[orUnknown(platform)] = avg
	}
	if err := rows.Err(); err != nil {
		return FeedbackSummary{}, err
	}
	if sum.Count > 0 {
		sum.AverageRating = weighted / float64(sum.Count)
	}
	return sum, nil
}
