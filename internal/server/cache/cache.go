// Package cache keeps public profiles close to the request layer. Profiles
// never change after registration, so entries only expire.
package cache

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

// ErrMiss is returned by Get when the profile is not cached.
var ErrMiss = errors.New("cache miss")

type ProfileCache interface {
	Get(ctx context.Context, userID string) (*models.PublicProfile, error)
	Set(ctx context.Context, p models.PublicProfile) error
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.PublicProfile, error) { return nil, ErrMiss }
func (Nop) Set(context.Context, models.PublicProfile) error           { return nil }
