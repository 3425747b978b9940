// Package services contains the messaging core: the credential store, the
// group registry, the mailbox store and the messaging service that
// orchestrates them.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/cache"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

// CredentialService owns user identities and verifies bearer tokens. Only a
// bcrypt hash of each token is stored.
type CredentialService struct {
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	profiles    cache.ProfileCache
	cost        int
	log         logging.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// NewCredentialService constructs a CredentialService. profiles may be nil;
// cost is the bcrypt work factor.
func NewCredentialService(tx dbx.Transactor, m repomanager.RepositoryManager, profiles cache.ProfileCache, cost int, log logging.Logger) *CredentialService {
	if profiles == nil {
		profiles = cache.Nop{}
	}
	return &CredentialService{
		tx:          tx,
		repomanager: m,
		profiles:    profiles,
		cost:        cost,
		log:         log.With("module", "credentials"),
	}
}

// Register creates the user and returns its plaintext token.
func (s *CredentialService) Register(ctx context.Context, userID, name, publicKey string) (*RegisterResult, error) {
	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.cost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{ID: userID, Name: name, PublicKey: publicKey, TokenHash: hash}
	err = s.tx.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Users(tx).Create(ctx, user)
		return err
	})
	if err != nil {
		if !errors.Is(err, common.ErrorAlreadyExists) {
			s.log.Error(ctx, "register failed", "user_id", userID, "error", err)
		}
		return nil, internalFault(err)
	}

	s.log.Info(ctx, "user registered", "user_id", userID)
	return &RegisterResult{User: user.Profile(), Token: token}, nil
}

// Authenticate reports whether token belongs to userID. An unknown user is
// not an error; a hash is still compared so the timing matches.
func (s *CredentialService) Authenticate(ctx context.Context, userID, token string) (bool, error) {
	user, err := s.repomanager.Users(s.tx.Conn()).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(token))
			return false, nil
		}
		s.log.Error(ctx, "authenticate failed", "user_id", userID, "error", err)
		return false, common.ErrorInternal
	}
	return bcrypt.CompareHashAndPassword(user.TokenHash, []byte(token)) == nil, nil
}

func (s *CredentialService) dummy() []byte {
	s.dummyOnce.Do(func() {
		secret, err := common.MakeRandHexString(tokenBytes)
		if err != nil {
			return
		}
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	})
	return s.dummyHash
}

// GetPublicProfile fails with common.ErrorNotFound.
func (s *CredentialService) GetPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn(ctx, "profile cache read failed", "user_id", userID, "error", err)
	}

	user, err := s.repomanager.Users(s.tx.Conn()).GetByID(ctx, userID)
	if err != nil {
		return nil, internalFault(err)
	}
	profile := user.Profile()
	if err := s.profiles.Set(ctx, profile); err != nil {
		s.log.Warn(ctx, "profile cache write failed", "user_id", userID, "error", err)
	}
	return &profile, nil
}

// Exists reports whether userID is registered. It does not authenticate.
func (s *CredentialService) Exists(ctx context.Context, userID string) (bool, error) {
	ok, err := s.exists(ctx, s.tx.Conn(), userID)
	return ok, internalFault(err)
}

func (s *CredentialService) exists(ctx context.Context, db dbx.DBTX, userID string) (bool, error) {
	ok, err := s.repomanager.Users(db).Exists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("error checking user: %w", err)
	}
	return ok, nil
}
