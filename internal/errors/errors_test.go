package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
	}{
		{"config code", ErrCodeConfigInvalid, CategoryConfig},
		{"lifecycle code", ErrCodeUnknownIndex, CategoryLifecycle},
		{"store code", ErrCodeStore, CategoryStore},
		{"validation code", ErrCodeInvalidArgument, CategoryValidation},
		{"internal code", ErrCodeJobFailed, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "message", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestStoreError_IsRetryable(t *testing.T) {
	// Given: a store error wrapping an I/O failure
	cause := fmt.Errorf("disk unplugged")
	err := StoreError("commit failed", cause)

	// Then: it is retryable and unwraps to the cause
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeStore, GetCode(err))
}

func TestIsRetryable_WalksWrappedChain(t *testing.T) {
	// Given: a store error wrapped by fmt.Errorf
	err := fmt.Errorf("job attempt 2: %w", StoreError("open failed", nil))

	// Then: retryability is still detected
	assert.True(t, IsRetryable(err))
}

func TestBusy_CarriesIndexDetail(t *testing.T) {
	err := Busy("books")

	require.NotNil(t, err.Details)
	assert.Equal(t, "books", err.Details["index"])
	assert.False(t, err.Retryable)
	assert.Equal(t, CategoryLifecycle, err.Category)
}

func TestIs_MatchesByCode(t *testing.T) {
	// Given: two unknown-index errors for different indexes
	a := UnknownIndex("a")
	b := UnknownIndex("b")

	// Then: errors.Is matches on code, not message
	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, Busy("a")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeStore, nil))
}

func TestGetCode_NonIndexError(t *testing.T) {
	assert.Equal(t, "", GetCode(fmt.Errorf("plain")))
	assert.Equal(t, Category(""), GetCategory(fmt.Errorf("plain")))
}
