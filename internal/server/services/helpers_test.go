package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/cache"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/groups"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errDB = errors.New("db error: connection reset")

type testEnv struct {
	store       *memory.Store
	credentials *CredentialService
	groups      *GroupService
	mailbox     *MailboxService
	messaging   *MessagingService
	clock       *fakeClock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	return newEnvWith(t, store, store, nil)
}

func newEnvWith(t *testing.T, tx dbx.Transactor, m repomanager.RepositoryManager, profiles cache.ProfileCache) *testEnv {
	t.Helper()
	log := logging.Nop{}
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}

	env := &testEnv{
		credentials: NewCredentialService(tx, m, profiles, bcrypt.MinCost, log),
		groups:      NewGroupService(tx, m, log),
		mailbox:     NewMailboxService(tx, m, log),
		clock:       clock,
	}
	if s, ok := tx.(*memory.Store); ok {
		env.store = s
	}
	env.mailbox.now = clock.now

	var err error
	env.messaging, err = NewMessagingService(tx, env.credentials, env.groups, env.mailbox, log)
	require.NoError(t, err)
	return env
}

// register creates the users and returns their tokens.
func (e *testEnv) register(t *testing.T, ids ...string) map[string]string {
	t.Helper()
	tokens := make(map[string]string, len(ids))
	for _, id := range ids {
		res, err := e.credentials.Register(context.Background(), id, "Name "+id, "pk-"+id)
		require.NoError(t, err)
		tokens[id] = res.Token
	}
	return tokens
}

// faultyManager wraps the memory store and lets a test break single
// repository calls.
type faultyManager struct {
	*memory.Store
	users    func(users.Repository) users.Repository
	groups   func(groups.Repository) groups.Repository
	messages func(messages.Repository) messages.Repository
}

func (m *faultyManager) Users(db dbx.DBTX) users.Repository {
	r := m.Store.Users(db)
	if m.users != nil {
		return m.users(r)
	}
	return r
}

func (m *faultyManager) Groups(db dbx.DBTX) groups.Repository {
	r := m.Store.Groups(db)
	if m.groups != nil {
		return m.groups(r)
	}
	return r
}

func (m *faultyManager) Messages(db dbx.DBTX) messages.Repository {
	r := m.Store.Messages(db)
	if m.messages != nil {
		return m.messages(r)
	}
	return r
}

type brokenUsers struct {
	users.Repository
}

func (brokenUsers) GetByID(context.Context, string) (*models.User, error) { return nil, errDB }
func (brokenUsers) Exists(context.Context, string) (bool, error)          { return false, errDB }

type brokenAddMember struct {
	groups.Repository
}

func (brokenAddMember) AddMember(context.Context, string, string) (bool, error) {
	return false, errDB
}

type brokenDelete struct {
	messages.Repository
}

func (brokenDelete) DeleteByRecipient(context.Context, string) (int64, error) { return 0, errDB }

type fakeProfileCache struct {
	items map[string]models.PublicProfile
	sets  int
	err   error
}

func (c *fakeProfileCache) Get(_ context.Context, id string) (*models.PublicProfile, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.items[id]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &p, nil
}

func (c *fakeProfileCache) Set(_ context.Context, p models.PublicProfile) error {
	c.sets++
	if c.items == nil {
		c.items = make(map[string]models.PublicProfile)
	}
	c.items[p.ID] = p
	return c.err
}
