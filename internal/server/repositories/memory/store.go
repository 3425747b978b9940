// Package memory is an in-process backend implementing the repository
// contracts and dbx.Transactor. A transaction works on a private copy of the
// state that replaces the committed state only when fn succeeds, so readers
// on the plain handle never observe uncommitted writes.
//
// Writers are serialized. A write through the plain handle behaves like an
// autocommit statement.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/groups"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/users"
)

var errNoSQL = errors.New("memory: sql statements are not supported")

type state struct {
	users    map[string]models.User
	groups   map[string]models.Group
	members  map[string]map[string]struct{}
	messages []models.Message
}

func (s *state) clone() *state {
	members := make(map[string]map[string]struct{}, len(s.members))
	for g, set := range s.members {
		members[g] = maps.Clone(set)
	}
	return &state{
		users:    maps.Clone(s.users),
		groups:   maps.Clone(s.groups),
		members:  members,
		messages: slices.Clone(s.messages),
	}
}

// txHandle is the dbx.DBTX passed to InTx callbacks. Repositories built from
// it read and write the transaction's working copy.
type txHandle struct {
	work *state
}

func (*txHandle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (*txHandle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (*txHandle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type Store struct {
	// txMu serializes writers. nextID is guarded by it and is never rolled
	// back, like a database sequence.
	txMu   sync.Mutex
	nextID int64

	mu        sync.RWMutex
	committed *state
}

func NewStore() *Store {
	return &Store{
		committed: &state{
			users:   make(map[string]models.User),
			groups:  make(map[string]models.Group),
			members: make(map[string]map[string]struct{}),
		},
	}
}

func (s *Store) Conn() dbx.DBTX {
	return nil
}

func (s *Store) InTx(ctx context.Context, fn dbx.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	return s.commit(func(work *state) error {
		return fn(ctx, &txHandle{work: work})
	})
}

// commit runs fn on a copy of the committed state and publishes the copy if
// fn succeeds. The caller holds txMu.
func (s *Store) commit(fn func(work *state) error) error {
	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(work); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

// read runs fn against the transaction's working copy when tx is set and
// against the committed state otherwise.
func (s *Store) read(tx *txHandle, fn func(st *state)) {
	if tx != nil {
		fn(tx.work)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

func (s *Store) write(tx *txHandle, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx.work)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.commit(fn)
}

func (s *Store) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func handle(db dbx.DBTX) *txHandle {
	tx, _ := db.(*txHandle)
	return tx
}

func (s *Store) Users(db dbx.DBTX) users.Repository {
	return &userRepository{s: s, tx: handle(db)}
}

func (s *Store) Groups(db dbx.DBTX) groups.Repository {
	return &groupRepository{s: s, tx: handle(db)}
}

func (s *Store) Messages(db dbx.DBTX) messages.Repository {
	return &messageRepository{s: s, tx: handle(db)}
}
