package users

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/pgerr"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (user_id, name, public_key, token_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.PublicKey, user.TokenHash).Scan(&user.CreatedAt)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query :=
		`SELECT user_id, name, public_key, token_hash, created_at FROM users
		 WHERE user_id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&user.ID, &user.Name, &user.PublicKey, &user.TokenHash, &user.CreatedAt)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}

	return user, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID string) (bool, error) {
	query := `SELECT 1 FROM users WHERE user_id = $1`

	var one int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&one)
	if err != nil {
		err = pgerr.Wrap(err)
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *PostgresRepository) FindExisting(ctx context.Context, userIDs []string) ([]string, error) {
	query := `SELECT user_id FROM users WHERE user_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	defer rows.Close()

	found := make([]string, 0, len(userIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, pgerr.Wrap(err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr.Wrap(err)
	}

	return found, nil
}

func (r *PostgresRepository) Lock(ctx context.Context, userID string) error {
	query := `SELECT user_id FROM users WHERE user_id = $1 FOR UPDATE`

	var id string
	return pgerr.Wrap(r.db.QueryRowContext(ctx, query, userID).Scan(&id))
}
