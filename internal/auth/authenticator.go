// Package auth implements the OTP login flow:
// PhoneEntry -> CodeSent -> Verified | Rejected.
// A challenge is issued per send and consumed by the first verification
// attempt, success or failure.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeDigits = 4
	// minPhoneDigits mirrors the login form's minimal length check.
	minPhoneDigits = 10
)

var (
	// ErrInvalidPhone is a validation failure; it never reaches the store.
	ErrInvalidPhone = errors.New("phone number must have at least 10 digits")
	// ErrNoChallenge means no code was requested for this phone, or the
	// outstanding one was already consumed by an earlier attempt.
	ErrNoChallenge = errors.New("no outstanding code for this number, request a new one")
	// ErrChallengeExpired means the code outlived its verification window.
	ErrChallengeExpired = errors.New("code expired, request a new one")
	// ErrCodeMismatch is the service rejecting the submitted code.
	ErrCodeMismatch = errors.New("invalid code")
	// ErrInvalidRole rejects role tabs outside farmer/buyer.
	ErrInvalidRole = errors.New("role must be farmer or buyer")
)

// Authenticator issues and verifies OTP challenges. It is the sole writer
// of the session store: handlers call SignIn only after VerifyCode
// succeeds.
type Authenticator struct {
	store    *store.Store
	codeTTL  time.Duration
	demoMode bool
}

func NewAuthenticator(st *store.Store, codeTTL time.Duration, demoMode bool) *Authenticator {
	return &Authenticator{store: st, codeTTL: codeTTL, demoMode: demoMode}
}

// SendResult reports a successful code issue. DemoCode carries the
// plaintext code only in demo mode; production builds leave it empty and
// hand the code to the SMS gateway instead.
type SendResult struct {
	Phone    string
	DemoCode string
}

// SendCode moves PhoneEntry -> CodeSent. An invalid phone keeps the flow
// in PhoneEntry with a validation error; any previously outstanding
// challenge for the phone is superseded by the new one.
func (a *Authenticator) SendCode(phone string) (*SendResult, error) {
	normalized, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generating code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing code: %w", err)
	}

	challenge := &models.Challenge{
		ID:        uuid.New().String(),
		Phone:     normalized,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(a.codeTTL),
	}
	if err := a.store.CreateChallenge(challenge); err != nil {
		return nil, fmt.Errorf("storing challenge: %w", err)
	}

	result := &SendResult{Phone: normalized}
	if a.demoMode {
		result.DemoCode = code
	} else {
		// SMS gateway integration point. The code never appears above
		// DEBUG level.
		slog.Debug("OTP issued", "phone", normalized, "challenge_id", challenge.ID)
	}
	return result, nil
}

// VerifyCode moves CodeSent -> Verified | Rejected. The outstanding
// challenge is consumed before the code comparison, so a second attempt
// against the same challenge fails with ErrNoChallenge even when the
// code matches. On success the caller writes {role} into the session;
// the role is the tab the user picked, never derived from any response.
func (a *Authenticator) VerifyCode(phone, code string, role models.Role) (*models.User, error) {
	normalized, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	challenge, err := a.store.ConsumeChallenge(normalized)
	if err != nil {
		if errors.Is(err, store.ErrNoChallenge) {
			return nil, ErrNoChallenge
		}
		return nil, fmt.Errorf("consuming challenge: %w", err)
	}

	if time.Now().After(challenge.ExpiresAt) {
		return nil, ErrChallengeExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		return nil, ErrCodeMismatch
	}

	user := &models.User{Phone: normalized, Role: role}
	if err := a.store.UpsertUser(user); err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	slog.Info("OTP verified", "phone", normalized, "role", role)
	return user, nil
}

// normalizePhone strips formatting and applies the minimal length check.
func normalizePhone(phone string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) < minPhoneDigits {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
