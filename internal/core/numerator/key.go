package numerator

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidKey reports a sequence key that no store can hold.
var ErrInvalidKey = errors.New("invalid sequence key")

// keyPattern keeps keys safe as SQL values, Redis key suffixes and znode names.
var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]{0,63}$`)

// ValidateKey checks a domain sequence key: a letter followed by up to 63
// letters, digits, '_', '.' or '-'.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidKey)
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
