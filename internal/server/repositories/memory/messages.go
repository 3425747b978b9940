package memory

import (
	"context"
	"slices"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

type messageRepository struct {
	s  *Store
	tx *txHandle
}

// insert runs inside write, so txMu is held.
func (r *messageRepository) insert(st *state, msg models.Message) (int64, error) {
	if _, ok := st.users[msg.RecipientID]; !ok {
		return 0, common.ErrorRecipientNotFound
	}
	if _, ok := st.users[msg.SenderID]; !ok {
		return 0, common.ErrorNotFound
	}
	r.s.nextID++
	msg.ID = r.s.nextID
	st.messages = append(st.messages, msg)
	return msg.ID, nil
}

func (r *messageRepository) Create(_ context.Context, msg *models.Message) (int64, error) {
	var id int64
	err := r.s.write(r.tx, func(st *state) error {
		var err error
		id, err = r.insert(st, *msg)
		return err
	})
	if err != nil {
		return 0, err
	}
	msg.ID = id
	return id, nil
}

func (r *messageRepository) CreateBatch(_ context.Context, recipientIDs []string, tmpl models.Message) (int64, error) {
	var n int64
	err := r.s.write(r.tx, func(st *state) error {
		for _, id := range recipientIDs {
			msg := tmpl
			msg.RecipientID = id
			if _, err := r.insert(st, msg); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (r *messageRepository) ListByRecipient(_ context.Context, recipientID string) ([]models.Message, error) {
	result := make([]models.Message, 0)
	r.s.read(r.tx, func(st *state) {
		for _, m := range st.messages {
			if m.RecipientID == recipientID {
				result = append(result, m)
			}
		}
	})
	slices.SortStableFunc(result, func(a, b models.Message) int {
		if a.Timestamp != b.Timestamp {
			if a.Timestamp < b.Timestamp {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return result, nil
}

func (r *messageRepository) CountByRecipient(_ context.Context, recipientID string) (int64, error) {
	var n int64
	r.s.read(r.tx, func(st *state) {
		for _, m := range st.messages {
			if m.RecipientID == recipientID {
				n++
			}
		}
	})
	return n, nil
}

func (r *messageRepository) DeleteByRecipient(_ context.Context, recipientID string) (int64, error) {
	var n int64
	err := r.s.write(r.tx, func(st *state) error {
		before := len(st.messages)
		st.messages = slices.DeleteFunc(st.messages, func(m models.Message) bool {
			return m.RecipientID == recipientID
		})
		n = int64(before - len(st.messages))
		return nil
	})
	return n, err
}
