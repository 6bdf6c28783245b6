package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
)

// ErrNoChallenge means there is no outstanding (unconsumed) challenge for
// the phone number: either none was issued, or the one that was has
// already been consumed by a prior verification attempt.
var ErrNoChallenge = errors.New("no outstanding challenge")

// CreateChallenge stores a fresh OTP challenge and supersedes any
// outstanding one for the same phone, so at most one challenge per phone
// is verifiable at a time.
func (s *Store) CreateChallenge(c *models.Challenge) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE otp_challenges SET consumed = 1 WHERE phone = ? AND consumed = 0`, c.Phone); err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO otp_challenges (id, phone, code_hash, expires_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Phone, c.CodeHash, c.ExpiresAt.UTC(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ConsumeChallenge returns the outstanding challenge for the phone and
// marks it consumed in the same transaction. A challenge comes back from
// here exactly once; the second call for the same challenge returns
// ErrNoChallenge no matter what the first verification attempt decided.
func (s *Store) ConsumeChallenge(phone string) (*models.Challenge, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT id, phone, code_hash, expires_at, created_at
		 FROM otp_challenges
		 WHERE phone = ? AND consumed = 0
		 ORDER BY created_at DESC LIMIT 1`, phone,
	)

	var c models.Challenge
	if err := row.Scan(&c.ID, &c.Phone, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoChallenge
		}
		return nil, err
	}

	if _, err := tx.Exec(`UPDATE otp_challenges SET consumed = 1 WHERE id = ?`, c.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	c.Consumed = true
	return &c, nil
}

// PruneChallenges deletes challenges that expired before the cutoff.
func (s *Store) PruneChallenges(cutoff time.Time) (int64, error) {
	res, err := s.DB.Exec(`DELETE FROM otp_challenges WHERE expires_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
