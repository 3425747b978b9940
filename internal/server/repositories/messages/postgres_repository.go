package messages

import (
	"context"

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

// wrap reports foreign key failures as a missing recipient; the sender has
// always been authenticated before a message is written.
func wrap(err error) error {
	if pgerr.Code(err) == pgerr.ForeignKeyViolation {
		return common.ErrorRecipientNotFound
	}
	return pgerr.Wrap(err)
}

func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) (int64, error) {
	query :=
		`INSERT INTO messages (recipient_id, sender_id, channel_id, content, sent_at, is_group)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING message_id
		 `

	err := r.db.QueryRowContext(ctx, query,
		msg.RecipientID, msg.SenderID, msg.ChannelID, msg.Content, msg.Timestamp, msg.IsGroup).Scan(&msg.ID)
	if err != nil {
		return 0, wrap(err)
	}

	return msg.ID, nil
}

func (r *PostgresRepository) CreateBatch(ctx context.Context, recipientIDs []string, tmpl models.Message) (int64, error) {
	query :=
		`INSERT INTO messages (recipient_id, sender_id, channel_id, content, sent_at, is_group)
		 SELECT recipient, $2, $3, $4, $5, $6 FROM unnest($1::text[]) AS recipient
		 `

	res, err := r.db.ExecContext(ctx, query,
		pq.Array(recipientIDs), tmpl.SenderID, tmpl.ChannelID, tmpl.Content, tmpl.Timestamp, tmpl.IsGroup)
	if err != nil {
		return 0, wrap(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, pgerr.Wrap(err)
	}
	return n, nil
}

func (r *PostgresRepository) ListByRecipient(ctx context.Context, recipientID string) ([]models.Message, error) {
	query :=
		`SELECT message_id, recipient_id, sender_id, channel_id, content, sent_at, is_group
		 FROM messages
		 WHERE recipient_id = $1
		 ORDER BY sent_at, message_id
		 `

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, pgerr.Wrap(err)
	}
	defer rows.Close()

	result := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RecipientID, &m.SenderID, &m.ChannelID, &m.Content, &m.Timestamp, &m.IsGroup); err != nil {
			return nil, pgerr.Wrap(err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, pgerr.Wrap(err)
	}

	return result, nil
}

func (r *PostgresRepository) CountByRecipient(ctx context.Context, recipientID string) (int64, error) {
	query := `SELECT COUNT(*) FROM messages WHERE recipient_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&n); err != nil {
		return 0, pgerr.Wrap(err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteByRecipient(ctx context.Context, recipientID string) (int64, error) {
	query := `DELETE FROM messages WHERE recipient_id = $1`

	res, err := r.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, pgerr.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, pgerr.Wrap(err)
	}
	return n, nil
}
