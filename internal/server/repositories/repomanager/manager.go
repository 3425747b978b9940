package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophmsg/internal/dbx"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/groups"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophmsg/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a handle, which is either the
// shared connection or an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Groups(db dbx.DBTX) groups.Repository
	Messages(db dbx.DBTX) messages.Repository
}
