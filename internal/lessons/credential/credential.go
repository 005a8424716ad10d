// Package credential issues lesson passwords and verifies them. Only bcrypt
// hashes are stored; the plaintext leaves the service once, in the booking
// response.
package credential

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	lessonserrors "coachbook/internal/lessons/errors"
	"coachbook/pkg/model"

	"golang.org/x/crypto/bcrypt"
)

const secretBytes = 18

type SecretHasher struct {
	cost int
}

func NewSecretHasher(cost int) *SecretHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &SecretHasher{cost: cost}
}

// NewSecret returns a random URL-safe password and its hash.
func (h *SecretHasher) NewSecret() (plain string, hash string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	plain = base64.RawURLEncoding.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return plain, string(hashed), nil
}

func (h *SecretHasher) Matches(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// LessonLookup reads a lesson whether or not it is still active.
type LessonLookup interface {
	FindByID(ctx context.Context, id string) (*model.Lesson, error)
}

// Gate checks a (lesson id, password) pair. An unknown id, a malformed id and
// a wrong password all fail with the same ErrInvalidCredentials.
type Gate struct {
	lessons LessonLookup
	hasher  *SecretHasher
}

func NewGate(lessons LessonLookup, hasher *SecretHasher) *Gate {
	return &Gate{lessons: lessons, hasher: hasher}
}

func (g *Gate) Verify(ctx context.Context, lessonID, password string) (*model.Lesson, error) {
	if lessonID == "" || password == "" {
		return nil, lessonserrors.ErrInvalidCredentials
	}

	lesson, err := g.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, lessonserrors.ErrNotFound) || errors.Is(err, lessonserrors.ErrInvalidID) {
			return nil, lessonserrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !g.hasher.Matches(lesson.SecretHash, password) {
		return nil, lessonserrors.ErrInvalidCredentials
	}
	return lesson, nil
}
