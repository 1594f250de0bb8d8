package util

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"banking/internal/domain"
)

const (
	digits            = "0123456789"
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength   = 12

	// DefaultMaxAttempts caps generate-check-retry loops.
	DefaultMaxAttempts = 10
)

func randomString(alphabet string, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}
	return b.String()
}

// GenerateAccountNumber returns twelve random digits. Leading zeros are allowed.
func GenerateAccountNumber() string {
	return randomString(digits, domain.AccountNumberLength)
}

func GenerateReferenceNumber() string {
	return domain.ReferencePrefix + randomString(referenceAlphabet, referenceLength)
}

// UniqueIdentifier generates candidates until taken reports one as free, up to
// maxAttempts. Two callers can still race to the same free value; the unique
// constraint in the database settles that and surfaces as domain.ErrConflict.
func UniqueIdentifier(
	ctx context.Context,
	maxAttempts int,
	generate func() string,
	taken func(ctx context.Context, candidate string) (bool, error),
) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := generate()
		inUse, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check identifier %s: %w", candidate, err)
		}
		if !inUse {
			return candidate, nil
		}
	}
	return "", domain.NewError(domain.ErrConflict, "no free identifier after %d attempts", maxAttempts)
}
