package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	errx "github.com/propchat-core/server/internal/core/error"
)

// UserEmail resolves a user id to the email address on file. An unknown user
// resolves to an empty string so the email node can fall back to extracting
// an address from the question.
func (s *Service) UserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.pool.QueryRow(ctx,
		`SELECT email FROM users WHERE username = $1`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", errx.WrapPostgres(err)
	}
	return email, nil
}
