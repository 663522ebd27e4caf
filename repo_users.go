package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConsumeResetTokenSQL atomically spends a reset token: the update only
// matches while the token is still present, so concurrent consumers cannot
// double-spend it.
// NOTE: partial ORM updates cannot NULL columns, hence raw SQL.
var ConsumeResetTokenSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"password_reset_token" = NULL,
	"token_expiry_date" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."password_reset_token" = ?
RETURNING *;`

// ConsumeVerificationTokenSQL atomically spends a verification token and
// marks the account verified.
var ConsumeVerificationTokenSQL = `UPDATE "users" AS "usr"
SET
	"verified" = TRUE,
	"email_verification_token" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."email_verification_token" = ?
RETURNING *;`

// Users is the user directory. Lookups return (nil, nil) when no record
// matches; errors are reserved for storage faults.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByPasswordResetToken(ctx context.Context, token string) (*User, error)
	FindByPasswordResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	FindByEmailVerificationToken(ctx context.Context, token string) (*User, error)
	FindByEmailVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)

	Save(ctx context.Context, record *User) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	ConsumePasswordResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string) (*User, error)
	ConsumeEmailVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.findOneTx(ctx, tx, "email", email)
}

func (a *users) FindByPasswordResetToken(ctx context.Context, token string) (*User, error) {
	return a.FindByPasswordResetTokenTx(ctx, a.db, token)
}

func (a *users) FindByPasswordResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.findOneTx(ctx, tx, "password_reset_token", token)
}

func (a *users) FindByEmailVerificationToken(ctx context.Context, token string) (*User, error) {
	return a.FindByEmailVerificationTokenTx(ctx, a.db, token)
}

func (a *users) FindByEmailVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.findOneTx(ctx, tx, "email_verification_token", token)
}

func (a *users) findOneTx(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Save(ctx context.Context, record *User) (*User, error) {
	return a.SaveTx(ctx, a.db, record)
}

// SaveTx persists a user: new records are inserted, existing records are
// updated by primary key. Updates are partial; clearing token columns goes
// through the Consume methods instead.
func (a *users) SaveTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if record.ID == uuid.Nil {
		prepareUserDefaults(record)
		return a.Repository.CreateTx(ctx, tx, record)
	}
	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
}

func (a *users) ConsumePasswordResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	res, err := a.Repository.RawTx(ctx, tx, ConsumeResetTokenSQL, passwordHash, token)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, nil
	}

	return res[0], nil
}

func (a *users) ConsumeEmailVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	res, err := a.Repository.RawTx(ctx, tx, ConsumeVerificationTokenSQL, token)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, nil
	}

	return res[0], nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
