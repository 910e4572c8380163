package service

import (
	"errors"
	"fmt"
	"testing"

	"gpms-backend/internal/repository"

	"github.com/stretchr/testify/assert"
)

func TestError_MatchesByKind(t *testing.T) {
	err := newError(KindExpired, "InvitationService.Accept", "invitation has expired")
	assert.ErrorIs(t, err, ErrExpired)
	assert.NotErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "InvitationService.Accept: invitation has expired", err.Error())

	wrapped := fmt.Errorf("handler: %w", err)
	assert.ErrorIs(t, wrapped, ErrExpired)
	assert.Equal(t, KindExpired, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := wrapError(KindTransactionFailed, "op", "transaction aborted", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "op: transaction aborted: connection reset", err.Error())
}

func TestFromRepo(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "not found", err: repository.ErrNotFound, want: KindNotFound},
		{name: "conflict", err: repository.ErrConflict, want: KindConflict},
		{name: "duplicate", err: fmt.Errorf("%w: invitations_pair_key", repository.ErrDuplicate), want: KindConflict},
		{name: "driver failure", err: errors.New("pq: connection refused"), want: KindTransactionFailed},
		{name: "typed error passes through", err: newError(KindValidation, "inner", "bad"), want: KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(fromRepo("op", "invitation", tt.err)))
		})
	}
	assert.NoError(t, fromRepo("op", "invitation", nil))
}

func TestTxError(t *testing.T) {
	typed := newError(KindInvalidState, "op", "already accepted")
	assert.Same(t, typed, txError("op", typed))
	assert.Equal(t, KindTransactionFailed, KindOf(txError("op", errors.New("deadlock detected"))))
	assert.NoError(t, txError("op", nil))
}
