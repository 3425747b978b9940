package services

import "github.com/dmitrijs2005/gophmsg/internal/server/models"

// RegisterResult carries the plaintext bearer token. It is returned once and
// never stored.
type RegisterResult struct {
	User  models.PublicProfile
	Token string
}

type SendResult struct {
	MessageID int64
}

type GroupSendResult struct {
	RecipientCount int64
}

// AckResult reports how many messages the mailbox held and how many were
// removed. The two are equal because the recipient row is locked in between.
type AckResult struct {
	DeletedCount  int64
	PreviousCount int64
}

type AddMembersResult struct {
	Added int
}

type RemoveResult struct {
	RemovedMember    string
	RemainingMembers int
}

type LeaveResult struct {
	RemainingMembers int
	GroupDeleted     bool
}

type GroupDetails struct {
	Group   models.Group
	Members map[string]string
}
