package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes the persistence surface of the package: the user
// directory plus transaction management.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
}

type mngr struct {
	db    *bun.DB
	users Users
}

var _ RepositoryManager = (*mngr)(nil)

// NewRepositoryManager creates a RepositoryManager backed by the given db.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:    db,
		users: NewUsersRepository(db),
	}
}

func (m *mngr) Users() Users {
	return m.users
}

func (m *mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager needs a db instance")
	}
	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		panic(err)
	}
}

// RunInTx executes fn inside a transaction. The transaction is rolled back
// when fn returns an error or the context is done before we start.
func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, fn)
	}
}
