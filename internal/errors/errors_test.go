package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"

	"github.com/victornm/tweetle/internal/errors"
)

func TestConvert(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantCode errors.Code
		wantHTTP int
	}{
		"plain error becomes internal": {
			err:      stderrors.New("boom"),
			wantCode: errors.CodeInternal,
			wantHTTP: http.StatusInternalServerError,
		},
		"wrapped sentinel keeps its code": {
			err:      fmt.Errorf("select puzzle: %w", errors.ErrEmptyCatalog),
			wantCode: errors.CodeFailedPrecondition,
			wantHTTP: http.StatusConflict,
		},
		"not found": {
			err:      errors.NotFound("puzzle %d", 7),
			wantCode: errors.CodeNotFound,
			wantHTTP: http.StatusNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := errors.Convert(tt.err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantHTTP, e.HTTPStatusCode())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	e := errors.New(errors.CodeUnavailable, errors.WithCause(cause), errors.WithMessagef("store %s", "redis"))

	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "store redis", e.Message)
	assert.Equal(t, codes.Unavailable, e.GRPCStatus().Code())
	assert.Contains(t, e.Error(), "disk full")
}

func TestSentinels(t *testing.T) {
	assert.ErrorIs(t, fmt.Errorf("advance: %w", errors.ErrInvalidTransition), errors.ErrInvalidTransition)
	assert.NotErrorIs(t, errors.ErrInvalidTransition, errors.ErrEmptyCatalog)
}
