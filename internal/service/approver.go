package service

import (
	"context"
	"errors"
	"fmt"

	"gpms-backend/internal/domain"
	"gpms-backend/internal/repository"
)

// orgScope locates a proposal inside the university hierarchy. Any field
// may be unknown.
type orgScope struct {
	departmentID *int32
	collegeID    *int32
	universityID *int32
}

// proposal is what an approval request is about.
type proposal struct {
	group       *domain.Group
	project     *domain.Project
	requesterID int32
}

// resolveScope takes the department and college from the group, then the
// project's college, then the requester's latest affiliation.
func resolveScope(ctx context.Context, r repository.Repos, p proposal) (orgScope, error) {
	var sc orgScope
	if p.group != nil {
		sc.departmentID = p.group.DepartmentID
		sc.collegeID = p.group.CollegeID
	}
	if sc.collegeID == nil && p.project != nil {
		sc.collegeID = p.project.CollegeID
	}
	if sc.departmentID == nil || sc.collegeID == nil {
		aff, err := r.Users.LatestAffiliation(ctx, p.requesterID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return sc, err
		}
		if aff != nil {
			if sc.departmentID == nil {
				sc.departmentID = aff.DepartmentID
			}
			if sc.collegeID == nil {
				sc.collegeID = aff.CollegeID
			}
			uni := aff.UniversityID
			sc.universityID = &uni
		}
	}
	return sc, nil
}

func (sc *orgScope) college(ctx context.Context, r repository.Repos) (*domain.College, error) {
	if sc.collegeID == nil && sc.departmentID != nil {
		dept, err := r.Orgs.GetDepartment(ctx, *sc.departmentID)
		if err != nil {
			return nil, err
		}
		sc.collegeID = &dept.CollegeID
	}
	if sc.collegeID == nil {
		return nil, repository.ErrNotFound
	}
	return r.Orgs.GetCollege(ctx, *sc.collegeID)
}

// approverFor returns the user who signs off at level for the proposal.
func approverFor(ctx context.Context, r repository.Repos, op string, level domain.ApproverLevel, p proposal, sc orgScope) (int32, error) {
	unresolved := func(err error) error {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return newError(KindValidation, op, fmt.Sprintf("no %s is assigned for this proposal", level))
	}

	switch level {
	case domain.LevelSupervisor:
		if p.group == nil {
			return 0, unresolved(nil)
		}
		sups, err := r.Groups.ListSupervisors(ctx, p.group.ID)
		if err != nil {
			return 0, err
		}
		for _, sup := range sups {
			if sup.Type == domain.SupervisorTypePrimary {
				return sup.UserID, nil
			}
		}
		return 0, unresolved(nil)

	case domain.LevelDepartmentHead:
		if sc.departmentID == nil {
			return 0, unresolved(nil)
		}
		dept, err := r.Orgs.GetDepartment(ctx, *sc.departmentID)
		if err != nil {
			return 0, unresolved(err)
		}
		if dept.HeadUserID == nil {
			return 0, unresolved(nil)
		}
		return *dept.HeadUserID, nil

	case domain.LevelDean:
		college, err := sc.college(ctx, r)
		if err != nil {
			return 0, unresolved(err)
		}
		if college.DeanUserID == nil {
			return 0, unresolved(nil)
		}
		return *college.DeanUserID, nil

	case domain.LevelPresident:
		uniID := sc.universityID
		if college, err := sc.college(ctx, r); err == nil {
			uniID = &college.UniversityID
		} else if !errors.Is(err, repository.ErrNotFound) {
			return 0, err
		}
		if uniID == nil {
			return 0, unresolved(nil)
		}
		uni, err := r.Orgs.GetUniversity(ctx, *uniID)
		if err != nil {
			return 0, unresolved(err)
		}
		if uni.PresidentUserID == nil {
			return 0, unresolved(nil)
		}
		return *uni.PresidentUserID, nil
	}
	return 0, newError(KindValidation, op, fmt.Sprintf("unknown approver level %d", level))
}

// classify picks the approval sequence for a proposal from its scope.
func classify(ctx context.Context, r repository.Repos, t domain.ApprovalType, p proposal) (domain.SequenceType, error) {
	if p.project != nil && p.project.Type == domain.ProjectTypeGovernment {
		return domain.SequenceGovernment, nil
	}
	if t == domain.ApprovalTypeExternalProject || (p.project != nil && p.project.Type == domain.ProjectTypePrivateCompany) {
		return domain.SequenceExternal, nil
	}
	if p.group == nil {
		return domain.SequenceSingleDepartment, nil
	}

	departments := make(map[int32]bool)
	colleges := make(map[int32]bool)
	if p.group.DepartmentID != nil {
		departments[*p.group.DepartmentID] = true
	}
	if p.group.CollegeID != nil {
		colleges[*p.group.CollegeID] = true
	}

	members, err := r.Groups.ListMembers(ctx, p.group.ID)
	if err != nil {
		return "", err
	}
	sups, err := r.Groups.ListSupervisors(ctx, p.group.ID)
	if err != nil {
		return "", err
	}
	userIDs := make([]int32, 0, len(members)+len(sups))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	for _, s := range sups {
		userIDs = append(userIDs, s.UserID)
	}
	for _, id := range userIDs {
		aff, err := r.Users.LatestAffiliation(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if aff.DepartmentID != nil {
			departments[*aff.DepartmentID] = true
		}
		if aff.CollegeID != nil {
			colleges[*aff.CollegeID] = true
		}
	}

	switch {
	case len(colleges) > 1:
		return domain.SequenceMultiCollege, nil
	case len(departments) > 1:
		return domain.SequenceMultiDepartment, nil
	default:
		return domain.SequenceSingleDepartment, nil
	}
}
