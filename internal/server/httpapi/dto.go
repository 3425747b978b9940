package httpapi

type registerResponse struct {
	Status int    `json:"status"`
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type sendResponse struct {
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	MessageID int64  `json:"message_id"`
}

type groupSendResponse struct {
	Status         int    `json:"status"`
	Detail         string `json:"detail"`
	RecipientCount int64  `json:"recipient_count"`
}

type messageDTO struct {
	Sender    string `json:"sender"`
	Channel   string `json:"channel"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	IsGroup   bool   `json:"is_group"`
}

type fetchResponse struct {
	Status   int          `json:"status"`
	Messages []messageDTO `json:"messages"`
}

type ackResponse struct {
	Status        int    `json:"status"`
	Detail        string `json:"detail"`
	DeletedCount  int64  `json:"deleted_count"`
	PreviousCount int64  `json:"previous_message_count"`
}

type createGroupResponse struct {
	Status    int      `json:"status"`
	GroupID   string   `json:"group_id"`
	GroupName string   `json:"group_name"`
	Members   []string `json:"members"`
}

type groupDetailsResponse struct {
	Status    int               `json:"status"`
	GroupID   string            `json:"group_id"`
	Name      string            `json:"name"`
	CreatorID string            `json:"creator_id"`
	Members   map[string]string `json:"members"`
}

type addMembersResponse struct {
	Status int `json:"status"`
	Added  int `json:"added"`
}

type removeResponse struct {
	Status           int    `json:"status"`
	RemovedMember    string `json:"removed_member"`
	RemainingMembers int    `json:"remaining_members"`
}

type leaveResponse struct {
	Status           int    `json:"status"`
	Detail           string `json:"detail"`
	RemainingMembers int    `json:"remaining_members"`
	GroupDeleted     bool   `json:"group_deleted"`
}

type renameResponse struct {
	Status  int    `json:"status"`
	NewName string `json:"new_name"`
}

type profileResponse struct {
	Status    int    `json:"status"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	PublicKey string `json:"public_key"`
}
