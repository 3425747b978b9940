package messages

import (
	"context"

	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

type Repository interface {
	// Create stores msg and returns its id. Fails with
	// common.ErrorRecipientNotFound if the recipient is not a registered user.
	Create(ctx context.Context, msg *models.Message) (int64, error)
	// CreateBatch stores one copy of tmpl per recipient in a single statement
	// and returns the number of rows written. tmpl.RecipientID is ignored.
	CreateBatch(ctx context.Context, recipientIDs []string, tmpl models.Message) (int64, error)
	// ListByRecipient returns the mailbox ordered by timestamp, then id.
	ListByRecipient(ctx context.Context, recipientID string) ([]models.Message, error)
	CountByRecipient(ctx context.Context, recipientID string) (int64, error)
	DeleteByRecipient(ctx context.Context, recipientID string) (int64, error)
}
