package sqlite

import (
	"context"
	"time"

	"github.com/rosterhq/attendance/internal/domain"
)

type refreshSessionsRepo struct {
	db dbtx
}

func (r *refreshSessionsRepo) Create(ctx context.Context, s *domain.RefreshSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.CreatedAt,
	)
	return mapConstraint(err)
}

// ConsumeByHash deletes the matching session and returns it in one
// statement, so two concurrent presentations of the same token cannot both
// succeed.
func (r *refreshSessionsRepo) ConsumeByHash(ctx context.Context, tokenHash string) (*domain.RefreshSession, error) {
	row := r.db.QueryRowContext(ctx, `
		DELETE FROM refresh_sessions WHERE token_hash = ?
		RETURNING id, user_id, token_hash, expires_at, created_at`,
		tokenHash,
	)

	var s domain.RefreshSession
	if err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return nil, mapNotFound(err)
	}
	return &s, nil
}

func (r *refreshSessionsRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE token_hash = ?`, tokenHash)
	return err
}

func (r *refreshSessionsRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshSessionsRepo) DeleteExpiredForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_sessions WHERE user_id = ? AND expires_at <= ?`,
		userID, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshSessionsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshSessionsRepo) CountForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM refresh_sessions WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
