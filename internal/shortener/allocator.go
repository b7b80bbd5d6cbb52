package shortener

import (
	"context"
	"regexp"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,10}$`)

// ValidCode reports whether a caller-supplied code matches the allowed
// pattern.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Allocator produces short codes that are free in durable storage at the time
// of the check. The check and the eventual insert are deliberately not atomic;
// the unique constraint on short_code settles races and the service retries on
// its behalf.
type Allocator struct {
	store         Store
	defaultLength int
	maxAttempts   int
}

func NewAllocator(store Store, defaultLength, maxAttempts int) *Allocator {
	if defaultLength < MinCodeLength {
		defaultLength = MinCodeLength
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Allocator{
		store:         store,
		defaultLength: defaultLength,
		maxAttempts:   maxAttempts,
	}
}

// Allocate returns a code currently free in durable storage. A custom code is
// validated and checked exactly once; ErrCodeTaken if occupied. Otherwise
// random codes are tried at the default length, escalating the length by one
// with a fresh attempt budget whenever a length's budget is exhausted.
func (a *Allocator) Allocate(ctx context.Context, custom string) (string, error) {
	if custom != "" {
		if !ValidCode(custom) {
			return "", ErrInvalidCode
		}
		exists, err := a.store.CodeExists(ctx, custom)
		if err != nil {
			return "", err
		}
		if exists {
			return "", ErrCodeTaken
		}
		return custom, nil
	}
	return a.generate(ctx, a.defaultLength)
}

func (a *Allocator) generate(ctx context.Context, length int) (string, error) {
	// Escalation is bounded by the short_code column width.
	for ; length <= MaxCodeLength; length++ {
		for attempt := 0; attempt < a.maxAttempts; attempt++ {
			code, err := GenerateCode(length)
			if err != nil {
				return "", err
			}
			exists, err := a.store.CodeExists(ctx, code)
			if err != nil {
				return "", err
			}
			if !exists {
				return code, nil
			}
		}
	}
	return "", ErrAllocationExhausted
}
