package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		kind     Kind
		sentinel error
	}{
		{KindNotFound, ErrNotFound},
		{KindRateLimited, ErrRateLimited},
		{KindValidationMismatch, ErrValidationMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := E("spotify", "search", tt.kind, nil)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestError_MismatchAlsoMatchesNotFound(t *testing.T) {
	err := E("spotify", "cross_validate", KindValidationMismatch, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestError_NetworkMatchesNoSentinel(t *testing.T) {
	err := E("piped", "streams", KindNetwork, errors.New("connection refused"))
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := E("lastfm", "search", KindNetwork, cause)
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("resolve: %w", err)
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindFromStatus(t *testing.T) {
	assert.Equal(t, KindNotFound, KindFromStatus(404))
	assert.Equal(t, KindRateLimited, KindFromStatus(429))
	assert.Equal(t, KindNetwork, KindFromStatus(500))
	assert.Equal(t, KindNetwork, KindFromStatus(403))
}
