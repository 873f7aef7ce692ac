package server

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
)

// ErrInvalidFormat is returned for a user-supplied code that is not exactly
// five decimal digits.
var ErrInvalidFormat = errors.New("code must be exactly 5 digits")

var codePattern = regexp.MustCompile(`^[0-9]{5}$`)

func validCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}

// randomCode draws a uniformly random code in [10000, 99999]. Auto-generated
// codes never have a leading zero; user-supplied ones may.
func randomCode() string {
	return strconv.Itoa(10000 + rand.IntN(90000))
}

// Allocator resolves the code a new file will be bound to. Its existence
// check is a pre-filter only: the record store's unique constraint remains
// the authority, and BindRecord can still report ErrCodeTaken for a code
// that looked free here.
type Allocator struct {
	store *Store
}

func NewAllocator(store *Store) *Allocator {
	return &Allocator{store: store}
}

// Reserve returns the code to bind a new file to.
//
// With a candidate, it validates the format and rejects codes that are
// already bound. Without one, it draws random codes until an unused one
// turns up. The draw loop has no attempt bound; with ~90000 possible codes
// it only livelocks if the space is nearly exhausted.
func (a *Allocator) Reserve(ctx context.Context, candidate string) (string, error) {
	if candidate != "" {
		if !validCodeFormat(candidate) {
			return "", ErrInvalidFormat
		}
		taken, err := a.store.CodeExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrCodeTaken
		}
		return candidate, nil
	}

	for {
		code := randomCode()
		taken, err := a.store.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}
