// Package store implements the engine's persistence boundaries on gorm.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/fitquest/engine"
)

var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNameTaken is returned when creating a community whose name exists.
	ErrNameTaken = errors.New("name already taken")
	// ErrLogExists is returned when a daily log for the same day already exists.
	ErrLogExists = errors.New("daily log already exists for this day")
	// ErrInvalidChallenge is returned for challenges that fail validation.
	ErrInvalidChallenge = errors.New("invalid challenge")
)

// notFound maps gorm's record-not-found onto engine.ErrNotFound.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, engine.ErrNotFound)...)
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
