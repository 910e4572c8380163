package service_test

import (
	"testing"

	"gpms-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleChecker_Can(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		userID int32
		action service.Action
		want   bool
	}{
		{name: "student invites", userID: f.student(0), action: service.ActionSendInvitation, want: true},
		{name: "student cannot approve", userID: f.student(0), action: service.ActionApproveRequest, want: false},
		{name: "supervisor answers roster", userID: f.w.supervisor.ID, action: service.ActionRespondGroupRequest, want: true},
		{name: "supervisor cannot submit roster", userID: f.w.supervisor.ID, action: service.ActionSubmitGroupRequest, want: false},
		{name: "dean approves", userID: f.w.dean.ID, action: service.ActionApproveRequest, want: true},
		{name: "company requests approval", userID: f.w.company.ID, action: service.ActionRequestApproval, want: true},
		{name: "company cannot invite", userID: f.w.company.ID, action: service.ActionSendInvitation, want: false},
		{name: "manager may do anything", userID: f.w.manager.ID, action: service.ActionSubmitGroupRequest, want: true},
		{name: "unknown user", userID: 9999, action: service.ActionSendInvitation, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.checker.Can(f.ctx, tt.userID, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
