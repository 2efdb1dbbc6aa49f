package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const userColumns = `id, clerk_id, email, name, credits, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ClerkID, &u.Email, &u.Name, &u.Credits, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// EnsureUser returns the user for a Clerk subject, creating it with
// initialCredits on first sight. A non-empty email or name refreshes the row.
func (s *Store) EnsureUser(ctx context.Context, clerkID, email, name string, initialCredits int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, clerk_id, email, name, credits, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (clerk_id) DO UPDATE SET
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			updated_at = NOW()
		RETURNING `+userColumns,
		uuid.New().String(), clerkID, email, name, initialCredits))
	if err != nil {
		return User{}, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}
