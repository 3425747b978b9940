package groups

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/pgerr"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, group *models.Group) error {
	query :=
		`INSERT INTO chat_groups (group_id, name, creator_id)
		 VALUES ($1, $2, $3)
		 `

	_, err := r.db.ExecContext(ctx, query, group.ID, group.Name, group.CreatorID)
	return pgerr.Wrap(err)
}

func (r *PostgresRepository) Get(ctx context.Context, groupID string) (*models.Group, error) {
	query := `SELECT group_id, name, creator_id FROM chat_groups WHERE group_id = $1`
	return r.scanGroup(ctx, query, groupID)
}

func (r *PostgresRepository) Lock(ctx context.Context, groupID string) (*models.Group, error) {
	query := `SELECT group_id, name, creator_id FROM chat_groups WHERE group_id = $1 FOR UPDATE`
	return r.scanGroup(ctx, query, groupID)
}

func (r *PostgresRepository) scanGroup(ctx context.Context, query, groupID string) (*models.Group, error) {
	g := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(&g.ID, &g.Name, &g.CreatorID)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	return g, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, groupID, name string) error {
	query := `UPDATE chat_groups SET name = $2 WHERE group_id = $1`

	res, err := r.db.ExecContext(ctx, query, groupID, name)
	if err != nil {
		return pgerr.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pgerr.Wrap(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, groupID string) error {
	query := `DELETE FROM chat_groups WHERE group_id = $1`

	_, err := r.db.ExecContext(ctx, query, groupID)
	return pgerr.Wrap(err)
}

func (r *PostgresRepository) AddMember(ctx context.Context, groupID, userID string) (bool, error) {
	query :=
		`INSERT INTO chat_group_members (group_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (group_id, user_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return false, pgerr.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, pgerr.Wrap(err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, groupID, userID string) (int64, error) {
	query := `DELETE FROM chat_group_members WHERE group_id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return 0, pgerr.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, pgerr.Wrap(err)
	}
	return n, nil
}

func (r *PostgresRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	query := `SELECT 1 FROM chat_group_members WHERE group_id = $1 AND user_id = $2`

	var one int
	err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&one)
	if err != nil {
		err = pgerr.Wrap(err)
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PostgresRepository) CountMembers(ctx context.Context, groupID string) (int, error) {
	query := `SELECT COUNT(*) FROM chat_group_members WHERE group_id = $1`

	var n int
	if err := r.db.QueryRowContext(ctx, query, groupID).Scan(&n); err != nil {
		return 0, pgerr.Wrap(err)
	}
	return n, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	query :=
		`SELECT u.user_id, u.public_key FROM chat_group_members gm
		 JOIN users u ON gm.user_id = u.user_id
		 WHERE gm.group_id = $1
		 ORDER BY u.user_id
		 `

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.PublicKey); err != nil {
			return nil, pgerr.Wrap(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr.Wrap(err)
	}
	return members, nil
}

func (r *PostgresRepository) MemberIDs(ctx context.Context, groupID, exclude string) ([]string, error) {
	query :=
		`SELECT user_id FROM chat_group_members
		 WHERE group_id = $1 AND user_id <> $2
		 ORDER BY user_id
		 `

	rows, err := r.db.QueryContext(ctx, query, groupID, exclude)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, pgerr.Wrap(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr.Wrap(err)
	}
	return ids, nil
}
