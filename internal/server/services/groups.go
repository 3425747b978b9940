package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
)

// GroupService owns groups and their membership sets.
//
// The exported methods open their own transaction. The unexported variants
// take a handle so MessagingService can compose them inside one transaction.
type GroupService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewGroupService(tx dbx.Transactor, m repomanager.RepositoryManager, log logging.Logger) *GroupService {
	return &GroupService{tx: tx, repomanager: m, log: log.With("module", "groups")}
}

// CreateGroup stores the group and its creator as first member atomically.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID, groupID, name string) (*models.Group, error) {
	var g *models.Group
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		g, err = s.createGroup(ctx, tx, creatorID, groupID, name)
		return err
	})
	if err != nil {
		return nil, txFault(err)
	}
	s.log.Info(ctx, "group created", "group_id", groupID, "creator", creatorID)
	return g, nil
}

func (s *GroupService) createGroup(ctx context.Context, tx dbx.DBTX, creatorID, groupID, name string) (*models.Group, error) {
	repo := s.repomanager.Groups(tx)

	g := &models.Group{ID: groupID, Name: name, CreatorID: creatorID}
	if err := repo.Create(ctx, g); err != nil {
		return nil, err
	}
	if _, err := repo.AddMember(ctx, groupID, creatorID); err != nil {
		return nil, fmt.Errorf("error adding creator: %w", err)
	}
	return g, nil
}

// AddMembers adds all of memberIDs or none of them. Ids already in the group
// are skipped. It returns the number of memberships created.
func (s *GroupService) AddMembers(ctx context.Context, groupID string, memberIDs []string) (int, error) {
	var added int
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.lock(ctx, tx, groupID); err != nil {
			return err
		}
		var err error
		added, err = s.addMembers(ctx, tx, groupID, memberIDs)
		return err
	})
	if err != nil {
		return 0, txFault(err)
	}
	return added, nil
}

// addMembers expects the group row to be locked by the caller.
func (s *GroupService) addMembers(ctx context.Context, tx dbx.DBTX, groupID string, memberIDs []string) (int, error) {
	ids := slices.Clone(memberIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	existing, err := s.repomanager.Users(tx).FindExisting(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(existing) != len(ids) {
		var missing []string
		for _, id := range ids {
			if !slices.Contains(existing, id) {
				missing = append(missing, id)
			}
		}
		return 0, fmt.Errorf("%w: %s", common.ErrorMemberNotFound, strings.Join(missing, ", "))
	}

	repo := s.repomanager.Groups(tx)
	added := 0
	for _, id := range ids {
		ok, err := repo.AddMember(ctx, groupID, id)
		if err != nil {
			return 0, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// RemoveMember lets the creator remove another member. A group left with no
// members (the creator already left) is deleted.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, memberID, requesterID string) (*RemoveResult, error) {
	var res *RemoveResult
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res, err = s.removeMember(ctx, tx, groupID, memberID, requesterID)
		return err
	})
	if err != nil {
		return nil, txFault(err)
	}
	s.log.Info(ctx, "member removed", "group_id", groupID, "member", memberID, "remaining", res.RemainingMembers)
	return res, nil
}

func (s *GroupService) removeMember(ctx context.Context, tx dbx.DBTX, groupID, memberID, requesterID string) (*RemoveResult, error) {
	g, err := s.lock(ctx, tx, groupID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorForbidden
		}
		return nil, err
	}
	if g.CreatorID != requesterID {
		return nil, common.ErrorForbidden
	}
	if memberID == g.CreatorID {
		return nil, fmt.Errorf("%w: creator must leave the group instead", common.ErrorInvalidOperation)
	}

	n, err := s.repomanager.Groups(tx).RemoveMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("member %s: %w", memberID, common.ErrorNotFound)
	}

	remaining, err := s.dropIfEmpty(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	return &RemoveResult{RemovedMember: memberID, RemainingMembers: remaining}, nil
}

// LeaveGroup removes userID from the group, deleting the group when nobody
// is left. Leaving a group one is not in changes nothing.
func (s *GroupService) LeaveGroup(ctx context.Context, groupID, userID string) (*LeaveResult, error) {
	var res *LeaveResult
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res, err = s.leaveGroup(ctx, tx, groupID, userID)
		return err
	})
	if err != nil {
		return nil, txFault(err)
	}
	s.log.Info(ctx, "member left", "group_id", groupID, "user_id", userID, "deleted", res.GroupDeleted)
	return res, nil
}

func (s *GroupService) leaveGroup(ctx context.Context, tx dbx.DBTX, groupID, userID string) (*LeaveResult, error) {
	if _, err := s.lock(ctx, tx, groupID); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Groups(tx).RemoveMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	remaining, err := s.dropIfEmpty(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	return &LeaveResult{RemainingMembers: remaining, GroupDeleted: remaining == 0}, nil
}

// dropIfEmpty counts the members left and deletes the group at zero. The
// group row must be locked.
func (s *GroupService) dropIfEmpty(ctx context.Context, tx dbx.DBTX, groupID string) (int, error) {
	repo := s.repomanager.Groups(tx)

	remaining, err := repo.CountMembers(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if remaining == 0 {
		if err := repo.Delete(ctx, groupID); err != nil {
			return 0, err
		}
	}
	return remaining, nil
}

func (s *GroupService) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	ok, err := s.isMember(ctx, s.tx.Conn(), groupID, userID)
	return ok, internalFault(err)
}

func (s *GroupService) isMember(ctx context.Context, db dbx.DBTX, groupID, userID string) (bool, error) {
	return s.repomanager.Groups(db).IsMember(ctx, groupID, userID)
}

// IsCreator is false for unknown groups.
func (s *GroupService) IsCreator(ctx context.Context, groupID, userID string) (bool, error) {
	g, err := s.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return g.CreatorID == userID, nil
}

// GetGroup fails with common.ErrorNotFound.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	g, err := s.getGroup(ctx, s.tx.Conn(), groupID)
	return g, internalFault(err)
}

func (s *GroupService) getGroup(ctx context.Context, db dbx.DBTX, groupID string) (*models.Group, error) {
	return s.repomanager.Groups(db).Get(ctx, groupID)
}

// lock reads the group row for update. Membership changes that count what is
// left take it first.
func (s *GroupService) lock(ctx context.Context, tx dbx.DBTX, groupID string) (*models.Group, error) {
	return s.repomanager.Groups(tx).Lock(ctx, groupID)
}

// memberIDs lists the member ids in order, without exclude.
func (s *GroupService) memberIDs(ctx context.Context, db dbx.DBTX, groupID, exclude string) ([]string, error) {
	return s.repomanager.Groups(db).MemberIDs(ctx, groupID, exclude)
}

// RenameGroup requires requesterID to be a member.
func (s *GroupService) RenameGroup(ctx context.Context, groupID, name, requesterID string) error {
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.renameGroup(ctx, tx, groupID, name, requesterID)
	})
	return txFault(err)
}

func (s *GroupService) renameGroup(ctx context.Context, tx dbx.DBTX, groupID, name, requesterID string) error {
	if _, err := s.lock(ctx, tx, groupID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorForbidden
		}
		return err
	}
	ok, err := s.isMember(ctx, tx, groupID, requesterID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorForbidden
	}
	return s.repomanager.Groups(tx).Rename(ctx, groupID, name)
}

// ListMembers maps each member id to its public key. Callers check that the
// requester is a member.
func (s *GroupService) ListMembers(ctx context.Context, groupID string) (map[string]string, error) {
	m, err := s.listMembers(ctx, s.tx.Conn(), groupID)
	return m, internalFault(err)
}

func (s *GroupService) listMembers(ctx context.Context, db dbx.DBTX, groupID string) (map[string]string, error) {
	members, err := s.repomanager.Groups(db).ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(members))
	for _, m := range members {
		result[m.UserID] = m.PublicKey
	}
	return result, nil
}
