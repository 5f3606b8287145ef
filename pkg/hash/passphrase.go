package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost          = 12
	minPassphraseLength = 8
)

var ErrPassphraseMismatch = errors.New("passphrase does not match")

// Hash produces the bcrypt hash stored in BACKUP_PASSPHRASE_HASH.
func Hash(passphrase string) (string, error) {
	if len(passphrase) < minPassphraseLength {
		return "", fmt.Errorf("passphrase must be at least %d characters", minPassphraseLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passphrase: %w", err)
	}

	return string(hashed), nil
}

func Compare(hashed, passphrase string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(passphrase)); err != nil {
		return ErrPassphraseMismatch
	}
	return nil
}

// Guard reports whether a request may proceed. An empty hash disables the guard.
func Guard(hashed, presented string) error {
	if hashed == "" {
		return nil
	}
	if presented == "" {
		return ErrPassphraseMismatch
	}
	return Compare(hashed, presented)
}
