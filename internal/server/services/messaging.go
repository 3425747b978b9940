package services

import (
	"context"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"go.opentelemetry.io/otel/attribute"
)

// MessagingService is the entry point of the request layer. Every operation
// but Register starts by authenticating the caller and then composes the
// credential, group and mailbox stores.
type MessagingService struct {
	tx          dbx.Transactor
	credentials *CredentialService
	groups      *GroupService
	mailbox     *MailboxService
	log         logging.Logger
	otel        *instrumentation
}

func NewMessagingService(tx dbx.Transactor, credentials *CredentialService, groups *GroupService, mailbox *MailboxService, log logging.Logger) (*MessagingService, error) {
	o, err := newInstrumentation()
	if err != nil {
		return nil, err
	}
	return &MessagingService{
		tx:          tx,
		credentials: credentials,
		groups:      groups,
		mailbox:     mailbox,
		log:         log.With("module", "messaging"),
		otel:        o,
	}, nil
}

// --- authorization predicates ---

func (s *MessagingService) requireAuthenticated(ctx context.Context, userID, token string) error {
	ok, err := s.credentials.Authenticate(ctx, userID, token)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return nil
}

func (s *MessagingService) requireMember(ctx context.Context, db dbx.DBTX, groupID, userID string) error {
	ok, err := s.groups.isMember(ctx, db, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorForbidden
	}
	return nil
}

// --- operations ---

func (s *MessagingService) Register(ctx context.Context, userID, name, publicKey string) (res *RegisterResult, err error) {
	ctx, end := s.otel.start(ctx, "Register", attribute.String("user_id", userID))
	defer func() { end(err) }()

	return s.credentials.Register(ctx, userID, name, publicKey)
}

func (s *MessagingService) SendDirect(ctx context.Context, senderID, token, recipientID, content string) (res *SendResult, err error) {
	ctx, end := s.otel.start(ctx, "SendDirect", attribute.String("sender", senderID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, senderID, token); err != nil {
		return nil, err
	}
	ok, err := s.credentials.Exists(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorRecipientNotFound
	}

	id, err := s.mailbox.Append(ctx, recipientID, senderID, senderID, content, false)
	if err != nil {
		return nil, err
	}
	s.otel.recordStored(ctx, 1, false)
	return &SendResult{MessageID: id}, nil
}

// SendToGroup delivers one copy to every member except the sender. A group
// whose only member is the sender yields common.ErrorNoRecipients.
func (s *MessagingService) SendToGroup(ctx context.Context, senderID, token, groupID, content string) (res *GroupSendResult, err error) {
	ctx, end := s.otel.start(ctx, "SendToGroup", attribute.String("sender", senderID), attribute.String("group_id", groupID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, senderID, token); err != nil {
		return nil, err
	}

	var n int64
	err = s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.groups.getGroup(ctx, tx, groupID); err != nil {
			return err
		}
		if err := s.requireMember(ctx, tx, groupID, senderID); err != nil {
			return err
		}
		recipients, err := s.groups.memberIDs(ctx, tx, groupID, senderID)
		if err != nil {
			return err
		}
		n, err = s.mailbox.fanOut(ctx, tx, recipients, senderID, groupID, content)
		return err
	})
	if err != nil {
		return nil, txFault(err)
	}
	s.otel.recordStored(ctx, n, true)
	return &GroupSendResult{RecipientCount: n}, nil
}

// Fetch returns the caller's mailbox. Messages stay until acknowledged.
func (s *MessagingService) Fetch(ctx context.Context, userID, token string) (msgs []models.Message, err error) {
	ctx, end := s.otel.start(ctx, "Fetch", attribute.String("user_id", userID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, userID, token); err != nil {
		return nil, err
	}
	return s.mailbox.ListForRecipient(ctx, userID)
}

// Acknowledge deletes everything in the caller's mailbox.
func (s *MessagingService) Acknowledge(ctx context.Context, userID, token string) (res *AckResult, err error) {
	ctx, end := s.otel.start(ctx, "Acknowledge", attribute.String("user_id", userID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, userID, token); err != nil {
		return nil, err
	}
	res, err = s.mailbox.ClearForRecipient(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.otel.recordAcknowledged(ctx, res.DeletedCount)
	return res, nil
}

func (s *MessagingService) CreateGroup(ctx context.Context, creatorID, token, groupID, name string) (g *models.Group, err error) {
	ctx, end := s.otel.start(ctx, "CreateGroup", attribute.String("group_id", groupID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, creatorID, token); err != nil {
		return nil, err
	}
	return s.groups.CreateGroup(ctx, creatorID, groupID, name)
}

// AddMembers is open to any current member of the group.
func (s *MessagingService) AddMembers(ctx context.Context, requesterID, token, groupID string, memberIDs []string) (res *AddMembersResult, err error) {
	ctx, end := s.otel.start(ctx, "AddMembers", attribute.String("group_id", groupID), attribute.Int("count", len(memberIDs)))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, requesterID, token); err != nil {
		return nil, err
	}

	var added int
	err = s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.groups.lock(ctx, tx, groupID); err != nil {
			return err
		}
		if err := s.requireMember(ctx, tx, groupID, requesterID); err != nil {
			return err
		}
		var err error
		added, err = s.groups.addMembers(ctx, tx, groupID, memberIDs)
		return err
	})
	if err != nil {
		return nil, txFault(err)
	}
	s.log.Info(ctx, "members added", "group_id", groupID, "requester", requesterID, "added", added)
	return &AddMembersResult{Added: added}, nil
}

// RemoveMember is reserved for the group's creator.
func (s *MessagingService) RemoveMember(ctx context.Context, requesterID, token, groupID, memberID string) (res *RemoveResult, err error) {
	ctx, end := s.otel.start(ctx, "RemoveMember", attribute.String("group_id", groupID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, requesterID, token); err != nil {
		return nil, err
	}
	return s.groups.RemoveMember(ctx, groupID, memberID, requesterID)
}

func (s *MessagingService) LeaveGroup(ctx context.Context, userID, token, groupID string) (res *LeaveResult, err error) {
	ctx, end := s.otel.start(ctx, "LeaveGroup", attribute.String("group_id", groupID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, userID, token); err != nil {
		return nil, err
	}
	return s.groups.LeaveGroup(ctx, groupID, userID)
}

func (s *MessagingService) RenameGroup(ctx context.Context, requesterID, token, groupID, name string) (err error) {
	ctx, end := s.otel.start(ctx, "RenameGroup", attribute.String("group_id", groupID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, requesterID, token); err != nil {
		return err
	}
	return s.groups.RenameGroup(ctx, groupID, name, requesterID)
}

// GetGroupDetails is visible to members only.
func (s *MessagingService) GetGroupDetails(ctx context.Context, requesterID, token, groupID string) (res *GroupDetails, err error) {
	ctx, end := s.otel.start(ctx, "GetGroupDetails", attribute.String("group_id", groupID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, requesterID, token); err != nil {
		return nil, err
	}
	g, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, s.tx.Conn(), groupID, requesterID); err != nil {
		return nil, internalFault(err)
	}
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &GroupDetails{Group: *g, Members: members}, nil
}

func (s *MessagingService) GetUserProfile(ctx context.Context, requesterID, token, userID string) (p *models.PublicProfile, err error) {
	ctx, end := s.otel.start(ctx, "GetUserProfile", attribute.String("user_id", userID))
	defer func() { end(err) }()

	if err := s.requireAuthenticated(ctx, requesterID, token); err != nil {
		return nil, err
	}
	return s.credentials.GetPublicProfile(ctx, userID)
}
