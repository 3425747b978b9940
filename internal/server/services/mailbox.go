package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
)

// MailboxService owns the undelivered messages of every recipient.
type MailboxService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	now         func() time.Time
}

func NewMailboxService(tx dbx.Transactor, m repomanager.RepositoryManager, log logging.Logger) *MailboxService {
	return &MailboxService{tx: tx, repomanager: m, log: log.With("module", "mailbox"), now: time.Now}
}

// Append stores one message stamped with the current time. Fails with
// common.ErrorRecipientNotFound.
func (s *MailboxService) Append(ctx context.Context, recipientID, senderID, channelID, content string, isGroup bool) (int64, error) {
	var id int64
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		id, err = s.append(ctx, tx, recipientID, senderID, channelID, content, isGroup)
		return err
	})
	if err != nil {
		return 0, internalFault(err)
	}
	return id, nil
}

func (s *MailboxService) append(ctx context.Context, tx dbx.DBTX, recipientID, senderID, channelID, content string, isGroup bool) (int64, error) {
	msg := &models.Message{
		RecipientID: recipientID,
		SenderID:    senderID,
		ChannelID:   channelID,
		Content:     content,
		Timestamp:   s.now().Unix(),
		IsGroup:     isGroup,
	}
	return s.repomanager.Messages(tx).Create(ctx, msg)
}

// FanOut stores one group message per recipient, all with the same
// timestamp, in a single batch. An empty recipient list is
// common.ErrorNoRecipients.
func (s *MailboxService) FanOut(ctx context.Context, recipientIDs []string, senderID, channelID, content string) (int64, error) {
	var n int64
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		n, err = s.fanOut(ctx, tx, recipientIDs, senderID, channelID, content)
		return err
	})
	if err != nil {
		return 0, txFault(err)
	}
	return n, nil
}

func (s *MailboxService) fanOut(ctx context.Context, tx dbx.DBTX, recipientIDs []string, senderID, channelID, content string) (int64, error) {
	if len(recipientIDs) == 0 {
		return 0, common.ErrorNoRecipients
	}
	tmpl := models.Message{
		SenderID:  senderID,
		ChannelID: channelID,
		Content:   content,
		Timestamp: s.now().Unix(),
		IsGroup:   true,
	}
	return s.repomanager.Messages(tx).CreateBatch(ctx, recipientIDs, tmpl)
}

// ListForRecipient returns the mailbox oldest first without changing it.
func (s *MailboxService) ListForRecipient(ctx context.Context, recipientID string) ([]models.Message, error) {
	msgs, err := s.repomanager.Messages(s.tx.Conn()).ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, internalFault(err)
	}
	return msgs, nil
}

// ClearForRecipient counts and deletes the mailbox while holding the
// recipient's row lock, so no message can arrive in between.
func (s *MailboxService) ClearForRecipient(ctx context.Context, recipientID string) (*AckResult, error) {
	var res *AckResult
	err := s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Lock(ctx, recipientID); err != nil {
			return err
		}

		repo := s.repomanager.Messages(tx)
		previous, err := repo.CountByRecipient(ctx, recipientID)
		if err != nil {
			return err
		}
		deleted, err := repo.DeleteByRecipient(ctx, recipientID)
		if err != nil {
			return err
		}
		res = &AckResult{DeletedCount: deleted, PreviousCount: previous}
		return nil
	})
	if err != nil {
		return nil, txFault(err)
	}
	if res.DeletedCount != res.PreviousCount {
		s.log.Warn(ctx, "mailbox changed during clear", "recipient", recipientID,
			"previous", res.PreviousCount, "deleted", res.DeletedCount)
	}
	return res, nil
}
