package models

// Message is one undelivered mailbox entry. A group send is stored as one
// Message per recipient, all sharing ChannelID (the group id) and Timestamp.
type Message struct {
	ID          int64
	RecipientID string
	SenderID    string
	// ChannelID is the sender id for direct messages and the group id for
	// group messages.
	ChannelID string
	Content   string
	// Timestamp is server-assigned, in seconds since the Unix epoch.
	Timestamp int64
	IsGroup   bool
}
