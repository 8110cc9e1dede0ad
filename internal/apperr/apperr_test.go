package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"conflict", New(Conflict, "Space already exists"), Conflict},
		{"wrapped not found", fmt.Errorf("joining: %w", New(NotFound, "Space not found")), NotFound},
		{"foreign error", sql.ErrConnDone, Internal},
		{"internal wrap", Internalf(sql.ErrConnDone, "creating user"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(Unauthorized, "Incorrect password"))

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, New(Unauthorized, "Incorrect password"))
	assert.NotErrorIs(t, err, New(Unauthorized, "Username not found"))
}

func TestWrap_KeepsCause(t *testing.T) {
	assert.Nil(t, Wrap(Internal, "noop", nil))

	err := Wrap(Internal, "listing spaces", sql.ErrTxDone)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.Equal(t, "listing spaces: sql: transaction has already been committed or rolled back", err.Error())
}

func TestMessageOf(t *testing.T) {
	const fallback = "Internal server error"

	assert.Equal(t, "Space not found", MessageOf(New(NotFound, "Space not found"), fallback))
	assert.Equal(t, fallback, MessageOf(Internalf(errors.New("disk full"), "inserting"), fallback))
	assert.Equal(t, fallback, MessageOf(errors.New("plain"), fallback))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "validation", Validation.String())
	assert.Equal(t, "conflict", Conflict.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "unauthorized", Unauthorized.String())
	assert.Equal(t, "internal", Internal.String())
}
