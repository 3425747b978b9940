package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

type userRepository struct {
	s  *Store
	tx *txHandle
}

func (r *userRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	err := r.s.write(r.tx, func(st *state) error {
		if _, ok := st.users[user.ID]; ok {
			return common.ErrorAlreadyExists
		}
		user.CreatedAt = time.Now()
		u := *user
		u.TokenHash = append([]byte(nil), user.TokenHash...)
		st.users[user.ID] = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByID(_ context.Context, userID string) (*models.User, error) {
	var (
		u  models.User
		ok bool
	)
	r.s.read(r.tx, func(st *state) {
		u, ok = st.users[userID]
	})
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *userRepository) Exists(_ context.Context, userID string) (bool, error) {
	var ok bool
	r.s.read(r.tx, func(st *state) {
		_, ok = st.users[userID]
	})
	return ok, nil
}

func (r *userRepository) FindExisting(_ context.Context, userIDs []string) ([]string, error) {
	found := make([]string, 0, len(userIDs))
	r.s.read(r.tx, func(st *state) {
		for _, id := range userIDs {
			if _, ok := st.users[id]; ok {
				found = append(found, id)
			}
		}
	})
	return found, nil
}

// Lock only checks existence; writers are already serialized.
func (r *userRepository) Lock(ctx context.Context, userID string) error {
	ok, _ := r.Exists(ctx, userID)
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}
