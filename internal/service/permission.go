package service

import (
	"context"
	"errors"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/repository"
)

type Action string

const (
	ActionSendInvitation      Action = "send_invitation"
	ActionRespondInvitation   Action = "respond_invitation"
	ActionSubmitGroupRequest  Action = "submit_group_request"
	ActionRespondGroupRequest Action = "respond_group_request"
	ActionRequestApproval     Action = "request_approval"
	ActionApproveRequest      Action = "approve_request"
)

// Checker answers capability questions for the workflow engines.
type Checker interface {
	Can(ctx context.Context, userID int32, action Action) (bool, error)
}

var roleActions = map[domain.Role][]Action{
	domain.RoleStudent: {
		ActionSendInvitation,
		ActionRespondInvitation,
		ActionSubmitGroupRequest,
		ActionRespondGroupRequest,
		ActionRequestApproval,
	},
	domain.RoleSupervisor:          {ActionRespondGroupRequest, ActionApproveRequest},
	domain.RoleCoSupervisor:        {ActionRespondGroupRequest, ActionApproveRequest},
	domain.RoleDepartmentHead:      {ActionApproveRequest},
	domain.RoleDean:                {ActionApproveRequest},
	domain.RoleUniversityPresident: {ActionApproveRequest},
	domain.RoleExternalCompany:     {ActionRequestApproval},
}

type roleChecker struct {
	users repository.UserRepository
}

// NewRoleChecker grants actions by the roles stored on the user.
func NewRoleChecker(users repository.UserRepository) Checker {
	return &roleChecker{users: users}
}

func (c *roleChecker) Can(ctx context.Context, userID int32, action Action) (bool, error) {
	user, err := c.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if user.HasRole(domain.RoleSystemManager) {
		return true, nil
	}
	for _, role := range user.Roles {
		for _, a := range roleActions[role] {
			if a == action {
				return true, nil
			}
		}
	}
	return false, nil
}

func authorize(ctx context.Context, checker Checker, op string, userID int32, action Action) error {
	ok, err := checker.Can(ctx, userID, action)
	if err != nil {
		return wrapError(KindTransactionFailed, op, "capability check failed", err)
	}
	if !ok {
		return newError(KindUnauthorized, op, "not allowed to "+string(action))
	}
	return nil
}
