package models

// Group is a named set of members. CreatorID never changes.
type Group struct {
	ID        string
	Name      string
	CreatorID string
}

// Member pairs a group member with the public key other members encrypt to.
type Member struct {
	UserID    string
	PublicKey string
}
