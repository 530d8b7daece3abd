package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewError tests the basic creation of errors.
func TestNewError(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "DeadEnd",
			code:    DeadEnd,
			message: "no legal candidates",
		},
		{
			name:    "InfeasibleConfiguration",
			code:    InfeasibleConfiguration,
			message: "rollback exhausted all checkpoints",
		},
		{
			name:    "ConfigurationError",
			code:    ConfigurationError,
			message: "invalid scoring weights",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			customErr, ok := err.(*Error)

			assert.True(t, ok, "should be a custom *Error")
			assert.Equal(t, tt.code, customErr.Code())
			assert.Equal(t, tt.message, customErr.Error())

			// Test nil original error for new errors
			assert.Nil(t, customErr.Unwrap())
		})
	}
}

// TestWrapError tests error wrapping functionality.
func TestWrapError(t *testing.T) {
	originalErr := stderrors.New("original error")

	tests := []struct {
		name       string
		err        error
		code       ErrorCode
		wrapMsg    string
		expectNil  bool
		expectCode ErrorCode
	}{
		{
			name:       "Wrap normal error",
			err:        originalErr,
			code:       JudgmentUnavailable,
			wrapMsg:    "judgment call failed",
			expectNil:  false,
			expectCode: JudgmentUnavailable,
		},
		{
			name:      "Wrap nil error",
			err:       nil,
			code:      JudgmentUnavailable,
			wrapMsg:   "judgment call failed",
			expectNil: true,
		},
		{
			name:       "Wrap custom error",
			err:        New(DeadEnd, "beam emptied"),
			code:       InfeasibleConfiguration,
			wrapMsg:    "search failed",
			expectNil:  false,
			expectCode: InfeasibleConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := Wrap(tt.err, tt.code, tt.wrapMsg)
			if tt.expectNil {
				assert.Nil(t, wrapped)
				return
			}

			require.NotNil(t, wrapped)
			customErr, ok := wrapped.(*Error)
			require.True(t, ok)
			assert.Equal(t, tt.expectCode, customErr.Code())
			assert.Equal(t, tt.err, customErr.Unwrap())
		})
	}
}

// TestWithFields tests adding structured context to errors.
func TestWithFields(t *testing.T) {
	base := New(ConstraintViolation, "overlapping reuse key")
	withFields := WithFields(base, Fields{"line_id": "ham-3.1.64", "start": 2, "end": 6})

	customErr, ok := withFields.(*Error)
	require.True(t, ok)

	fields := customErr.Fields()
	assert.Equal(t, "ham-3.1.64", fields["line_id"])
	assert.Equal(t, 2, fields["start"])
	assert.Equal(t, 6, fields["end"])
	assert.Equal(t, ConstraintViolation, customErr.Code())

	// Fields on a nil error stays nil.
	assert.Nil(t, WithFields(nil, Fields{"k": "v"}))
}

// TestErrorIs tests errors.Is matching by code.
func TestErrorIs(t *testing.T) {
	err := WithFields(New(DeadEnd, "no candidates"), Fields{"decision": 12})

	assert.True(t, stderrors.Is(err, New(DeadEnd, "any message")))
	assert.False(t, stderrors.Is(err, New(Timeout, "any message")))
}

// TestCode tests code extraction for both custom and foreign errors.
func TestCode(t *testing.T) {
	assert.Equal(t, InfeasibleConfiguration, Code(New(InfeasibleConfiguration, "x")))
	assert.Equal(t, Unknown, Code(stderrors.New("plain")))
}

// TestCheckContext tests context cancellation wrapping.
func TestCheckContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, CheckContext(ctx, "decision step"))

	cancel()
	err := CheckContext(ctx, "decision step")
	require.Error(t, err)
	assert.Equal(t, Canceled, Code(err))
}
