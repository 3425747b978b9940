package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello Messenger"))
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "user_id", "name", "public_key")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.messaging.Register(r.Context(), normalizeID(f[0]), f[1], f[2])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{Status: 1, UserID: res.User.ID, Token: res.Token})
}

func (s *Server) sendDirect(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "name", "token", "message")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recipient := normalizeID(mux.Vars(r)["recipient"])

	res, err := s.messaging.SendDirect(r.Context(), normalizeID(f[0]), f[1], recipient, f[2])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Status: 1, Detail: "Sent", MessageID: res.MessageID})
}

func (s *Server) sendToGroup(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "name", "token", "message")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID := normalizeID(mux.Vars(r)["group_id"])

	res, err := s.messaging.SendToGroup(r.Context(), normalizeID(f[0]), f[1], groupID, f[2])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupSendResponse{
		Status:         1,
		Detail:         fmt.Sprintf("Message sent to %d group members", res.RecipientCount),
		RecipientCount: res.RecipientCount,
	})
}

func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "name", "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msgs, err := s.messaging.Fetch(r.Context(), normalizeID(f[0]), f[1])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageDTO{
			Sender:    m.SenderID,
			Channel:   m.ChannelID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			IsGroup:   m.IsGroup,
		})
	}
	writeJSON(w, http.StatusOK, fetchResponse{Status: 1, Messages: out})
}

func (s *Server) acknowledge(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "name", "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.messaging.Acknowledge(r.Context(), normalizeID(f[0]), f[1])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{
		Status:        1,
		Detail:        fmt.Sprintf("Deleted all %d messages", res.DeletedCount),
		DeletedCount:  res.DeletedCount,
		PreviousCount: res.PreviousCount,
	})
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "creator_id", "token", "group_name", "group_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	g, err := s.messaging.CreateGroup(r.Context(), normalizeID(f[0]), f[1], normalizeID(f[3]), f[2])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createGroupResponse{
		Status:    1,
		GroupID:   g.ID,
		GroupName: g.Name,
		Members:   []string{g.CreatorID},
	})
}

func (s *Server) groupDetails(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "name", "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID := normalizeID(mux.Vars(r)["group_id"])

	d, err := s.messaging.GetGroupDetails(r.Context(), normalizeID(f[0]), f[1], groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupDetailsResponse{
		Status:    1,
		GroupID:   d.Group.ID,
		Name:      d.Group.Name,
		CreatorID: d.Group.CreatorID,
		Members:   d.Members,
	})
}

// addMembers takes one or more new_member values.
func (s *Server) addMembers(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "requester_id", "token", "new_member")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID := normalizeID(mux.Vars(r)["group_id"])

	var ids []string
	for _, id := range r.Form["new_member"] {
		ids = append(ids, normalizeID(id))
	}

	res, err := s.messaging.AddMembers(r.Context(), normalizeID(f[0]), f[1], groupID, ids)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addMembersResponse{Status: 1, Added: res.Added})
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "member_id", "creator_id", "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID := normalizeID(mux.Vars(r)["group_id"])

	res, err := s.messaging.RemoveMember(r.Context(), normalizeID(f[1]), f[2], groupID, normalizeID(f[0]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{
		Status:           1,
		RemovedMember:    res.RemovedMember,
		RemainingMembers: res.RemainingMembers,
	})
}

func (s *Server) leaveGroup(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "user_id", "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID := normalizeID(mux.Vars(r)["group_id"])

	res, err := s.messaging.LeaveGroup(r.Context(), normalizeID(f[0]), f[1], groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail := "Left group"
	if res.GroupDeleted {
		detail += " and group was deleted"
	}
	writeJSON(w, http.StatusOK, leaveResponse{
		Status:           1,
		Detail:           detail,
		RemainingMembers: res.RemainingMembers,
		GroupDeleted:     res.GroupDeleted,
	})
}

func (s *Server) renameGroup(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "new_name", "requester_id", "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groupID := normalizeID(mux.Vars(r)["group_id"])

	if err := s.messaging.RenameGroup(r.Context(), normalizeID(f[1]), f[2], groupID, f[0]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renameResponse{Status: 1, NewName: f[0]})
}

func (s *Server) userProfile(w http.ResponseWriter, r *http.Request) {
	f, err := fields(r, "requester_id", "token")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	userID := normalizeID(mux.Vars(r)["user_id"])

	p, err := s.messaging.GetUserProfile(r.Context(), normalizeID(f[0]), f[1], userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Status: 1, UserID: p.ID, Name: p.Name, PublicKey: p.PublicKey})
}
