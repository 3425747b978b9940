package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessaging_EndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	svc := env.messaging

	alice, err := svc.Register(ctx, "alice", "Alice", "pk-a")
	require.NoError(t, err)
	bob, err := svc.Register(ctx, "bob", "Bob", "pk-b")
	require.NoError(t, err)

	g, err := svc.CreateGroup(ctx, "alice", alice.Token, "g1", "Team")
	require.NoError(t, err)
	assert.Equal(t, "Team", g.Name)

	added, err := svc.AddMembers(ctx, "alice", alice.Token, "g1", []string{"bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, added.Added)

	sent, err := svc.SendToGroup(ctx, "alice", alice.Token, "g1", "hi")
	require.NoError(t, err)
	assert.EqualValues(t, 1, sent.RecipientCount)

	msgs, err := svc.Fetch(ctx, "bob", bob.Token)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0].SenderID)
	assert.Equal(t, "g1", msgs[0].ChannelID)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.True(t, msgs[0].IsGroup)

	ack, err := svc.Acknowledge(ctx, "bob", bob.Token)
	require.NoError(t, err)
	assert.Equal(t, &AckResult{DeletedCount: 1, PreviousCount: 1}, ack)

	msgs, err = svc.Fetch(ctx, "bob", bob.Token)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessaging_Unauthorized(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	tokens := env.register(t, "alice", "bob")
	svc := env.messaging
	_, err := svc.CreateGroup(ctx, "alice", tokens["alice"], "g1", "Team")
	require.NoError(t, err)

	const bad = "not-a-token"
	calls := map[string]func() error{
		"SendDirect": func() error {
			_, err := svc.SendDirect(ctx, "alice", bad, "bob", "hi")
			return err
		},
		"SendToGroup": func() error {
			_, err := svc.SendToGroup(ctx, "alice", bad, "g1", "hi")
			return err
		},
		"Fetch": func() error {
			_, err := svc.Fetch(ctx, "alice", bad)
			return err
		},
		"Acknowledge": func() error {
			_, err := svc.Acknowledge(ctx, "alice", bad)
			return err
		},
		"CreateGroup": func() error {
			_, err := svc.CreateGroup(ctx, "alice", bad, "g2", "x")
			return err
		},
		"AddMembers": func() error {
			_, err := svc.AddMembers(ctx, "alice", bad, "g1", []string{"bob"})
			return err
		},
		"RemoveMember": func() error {
			_, err := svc.RemoveMember(ctx, "alice", bad, "g1", "bob")
			return err
		},
		"LeaveGroup": func() error {
			_, err := svc.LeaveGroup(ctx, "alice", bad, "g1")
			return err
		},
		"RenameGroup": func() error {
			return svc.RenameGroup(ctx, "alice", bad, "g1", "x")
		},
		"GetGroupDetails": func() error {
			_, err := svc.GetGroupDetails(ctx, "alice", bad, "g1")
			return err
		},
		"GetUserProfile": func() error {
			_, err := svc.GetUserProfile(ctx, "alice", bad, "bob")
			return err
		},
		"unknown caller": func() error {
			_, err := svc.Fetch(ctx, "zed", tokens["alice"])
			return err
		},
		"token of another user": func() error {
			_, err := svc.Fetch(ctx, "alice", tokens["bob"])
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), common.ErrorUnauthorized)
		})
	}

	d, err := svc.GetGroupDetails(ctx, "alice", tokens["alice"], "g1")
	require.NoError(t, err)
	assert.Equal(t, "Team", d.Group.Name)
	assert.Len(t, d.Members, 1)
}

func TestMessaging_SendDirect(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	tokens := env.register(t, "alice", "bob")
	svc := env.messaging

	res, err := svc.SendDirect(ctx, "alice", tokens["alice"], "bob", "hello")
	require.NoError(t, err)
	assert.NotZero(t, res.MessageID)

	_, err = svc.SendDirect(ctx, "alice", tokens["alice"], "zed", "hello")
	assert.ErrorIs(t, err, common.ErrorRecipientNotFound)

	msgs, err := svc.Fetch(ctx, "bob", tokens["bob"])
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.Message{
		ID: res.MessageID, RecipientID: "bob", SenderID: "alice", ChannelID: "alice",
		Content: "hello", Timestamp: env.clock.t.Unix(),
	}, msgs[0])
}

func TestMessaging_SendToGroup(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	tokens := env.register(t, "alice", "bob", "carol", "dave")
	svc := env.messaging

	_, err := svc.CreateGroup(ctx, "alice", tokens["alice"], "g1", "Team")
	require.NoError(t, err)

	_, err = svc.SendToGroup(ctx, "alice", tokens["alice"], "g1", "alone")
	assert.ErrorIs(t, err, common.ErrorNoRecipients)

	_, err = svc.AddMembers(ctx, "alice", tokens["alice"], "g1", []string{"bob", "carol"})
	require.NoError(t, err)

	res, err := svc.SendToGroup(ctx, "alice", tokens["alice"], "g1", "hi all")
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.RecipientCount)

	for _, id := range []string{"bob", "carol"} {
		msgs, err := svc.Fetch(ctx, id, tokens[id])
		require.NoError(t, err)
		require.Len(t, msgs, 1, id)
		assert.Equal(t, "alice", msgs[0].SenderID)
		assert.Equal(t, "g1", msgs[0].ChannelID)
		assert.Equal(t, "hi all", msgs[0].Content)
		assert.True(t, msgs[0].IsGroup)
	}
	own, err := svc.Fetch(ctx, "alice", tokens["alice"])
	require.NoError(t, err)
	assert.Empty(t, own, "no sole-member message and no copy for the sender")

	_, err = svc.SendToGroup(ctx, "dave", tokens["dave"], "g1", "let me in")
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = svc.SendToGroup(ctx, "alice", tokens["alice"], "g9", "hi")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMessaging_GroupAdministration(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	tokens := env.register(t, "alice", "bob", "carol")
	svc := env.messaging

	_, err := svc.CreateGroup(ctx, "alice", tokens["alice"], "g1", "Team")
	require.NoError(t, err)

	_, err = svc.AddMembers(ctx, "carol", tokens["carol"], "g1", []string{"carol"})
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = svc.AddMembers(ctx, "alice", tokens["alice"], "g9", []string{"bob"})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = svc.AddMembers(ctx, "alice", tokens["alice"], "g1", []string{"bob"})
	require.NoError(t, err)

	// any member may add
	res, err := svc.AddMembers(ctx, "bob", tokens["bob"], "g1", []string{"carol", "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	_, err = svc.RemoveMember(ctx, "bob", tokens["bob"], "g1", "carol")
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = svc.RemoveMember(ctx, "alice", tokens["alice"], "g1", "alice")
	assert.ErrorIs(t, err, common.ErrorInvalidOperation)

	removed, err := svc.RemoveMember(ctx, "alice", tokens["alice"], "g1", "carol")
	require.NoError(t, err)
	assert.Equal(t, &RemoveResult{RemovedMember: "carol", RemainingMembers: 2}, removed)

	_, err = svc.GetGroupDetails(ctx, "carol", tokens["carol"], "g1")
	assert.ErrorIs(t, err, common.ErrorForbidden)
	assert.ErrorIs(t, svc.RenameGroup(ctx, "carol", tokens["carol"], "g1", "Mine"), common.ErrorForbidden)

	require.NoError(t, svc.RenameGroup(ctx, "bob", tokens["bob"], "g1", "Crew"))

	d, err := svc.GetGroupDetails(ctx, "bob", tokens["bob"], "g1")
	require.NoError(t, err)
	assert.Equal(t, models.Group{ID: "g1", Name: "Crew", CreatorID: "alice"}, d.Group)
	assert.Equal(t, map[string]string{"alice": "pk-alice", "bob": "pk-bob"}, d.Members)

	_, err = svc.GetGroupDetails(ctx, "bob", tokens["bob"], "g9")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	left, err := svc.LeaveGroup(ctx, "alice", tokens["alice"], "g1")
	require.NoError(t, err)
	assert.Equal(t, &LeaveResult{RemainingMembers: 1}, left)

	left, err = svc.LeaveGroup(ctx, "bob", tokens["bob"], "g1")
	require.NoError(t, err)
	assert.Equal(t, &LeaveResult{RemainingMembers: 0, GroupDeleted: true}, left)

	_, err = svc.GetGroupDetails(ctx, "bob", tokens["bob"], "g1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMessaging_GetUserProfile(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	tokens := env.register(t, "alice", "bob")

	p, err := env.messaging.GetUserProfile(ctx, "alice", tokens["alice"], "bob")
	require.NoError(t, err)
	assert.Equal(t, &models.PublicProfile{ID: "bob", Name: "Name bob", PublicKey: "pk-bob"}, p)

	_, err = env.messaging.GetUserProfile(ctx, "alice", tokens["alice"], "zed")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMessaging_AcknowledgeUnderConcurrentSends(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	tokens := env.register(t, "alice", "bob")
	svc := env.messaging

	const sends = 40
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		deleted int64
	)
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SendDirect(ctx, "alice", tokens["alice"], "bob", fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
		if i%10 == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := svc.Acknowledge(ctx, "bob", tokens["bob"])
				if assert.NoError(t, err) {
					assert.Equal(t, res.PreviousCount, res.DeletedCount)
					mu.Lock()
					deleted += res.DeletedCount
					mu.Unlock()
				}
			}()
		}
	}
	wg.Wait()

	res, err := svc.Acknowledge(ctx, "bob", tokens["bob"])
	require.NoError(t, err)
	assert.EqualValues(t, sends, deleted+res.DeletedCount)
}
