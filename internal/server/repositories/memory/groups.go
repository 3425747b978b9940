package memory

import (
	"context"
	"slices"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

type groupRepository struct {
	s  *Store
	tx *txHandle
}

func (r *groupRepository) Create(_ context.Context, group *models.Group) error {
	return r.s.write(r.tx, func(st *state) error {
		if _, ok := st.groups[group.ID]; ok {
			return common.ErrorAlreadyExists
		}
		st.groups[group.ID] = *group
		st.members[group.ID] = make(map[string]struct{})
		return nil
	})
}

func (r *groupRepository) Get(_ context.Context, groupID string) (*models.Group, error) {
	var (
		g  models.Group
		ok bool
	)
	r.s.read(r.tx, func(st *state) {
		g, ok = st.groups[groupID]
	})
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &g, nil
}

func (r *groupRepository) Lock(ctx context.Context, groupID string) (*models.Group, error) {
	return r.Get(ctx, groupID)
}

func (r *groupRepository) Rename(_ context.Context, groupID, name string) error {
	return r.s.write(r.tx, func(st *state) error {
		g, ok := st.groups[groupID]
		if !ok {
			return common.ErrorNotFound
		}
		g.Name = name
		st.groups[groupID] = g
		return nil
	})
}

func (r *groupRepository) Delete(_ context.Context, groupID string) error {
	return r.s.write(r.tx, func(st *state) error {
		delete(st.groups, groupID)
		delete(st.members, groupID)
		return nil
	})
}

func (r *groupRepository) AddMember(_ context.Context, groupID, userID string) (bool, error) {
	var added bool
	err := r.s.write(r.tx, func(st *state) error {
		set, ok := st.members[groupID]
		if !ok {
			return common.ErrorNotFound
		}
		if _, ok := st.users[userID]; !ok {
			return common.ErrorMemberNotFound
		}
		if _, ok := set[userID]; ok {
			return nil
		}
		set[userID] = struct{}{}
		added = true
		return nil
	})
	return added, err
}

func (r *groupRepository) RemoveMember(_ context.Context, groupID, userID string) (int64, error) {
	var n int64
	err := r.s.write(r.tx, func(st *state) error {
		set := st.members[groupID]
		if _, ok := set[userID]; !ok {
			return nil
		}
		delete(set, userID)
		n = 1
		return nil
	})
	return n, err
}

func (r *groupRepository) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	var ok bool
	r.s.read(r.tx, func(st *state) {
		_, ok = st.members[groupID][userID]
	})
	return ok, nil
}

func (r *groupRepository) CountMembers(_ context.Context, groupID string) (int, error) {
	var n int
	r.s.read(r.tx, func(st *state) {
		n = len(st.members[groupID])
	})
	return n, nil
}

func (r *groupRepository) ListMembers(_ context.Context, groupID string) ([]models.Member, error) {
	var members []models.Member
	r.s.read(r.tx, func(st *state) {
		for _, id := range sortedIDs(st, groupID, "") {
			members = append(members, models.Member{UserID: id, PublicKey: st.users[id].PublicKey})
		}
	})
	return members, nil
}

func (r *groupRepository) MemberIDs(_ context.Context, groupID, exclude string) ([]string, error) {
	var ids []string
	r.s.read(r.tx, func(st *state) {
		ids = sortedIDs(st, groupID, exclude)
	})
	return ids, nil
}

func sortedIDs(st *state, groupID, exclude string) []string {
	var ids []string
	for id := range st.members[groupID] {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
