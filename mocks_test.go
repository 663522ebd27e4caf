package auth_test

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/castellan/auth"
)

// memoryUsers is an in-memory Users implementation. Lookups return copies so
// callers only observe mutations after SaveTx, matching the real repository.
type memoryUsers struct {
	mu      sync.Mutex
	records map[uuid.UUID]*auth.User
}

var _ auth.Users = (*memoryUsers)(nil)

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{records: map[uuid.UUID]*auth.User{}}
}

// seed inserts a record directly, bypassing the save path.
func (m *memoryUsers) seed(u *auth.User) *auth.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.records[u.ID] = &cp
	return u
}

func (m *memoryUsers) findBy(match func(*auth.User) bool) *auth.User {
	for _, u := range m.records {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return m.FindByEmailTx(ctx, nil, email)
}

func (m *memoryUsers) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findBy(func(u *auth.User) bool {
		return strings.EqualFold(u.Email, email)
	}), nil
}

func (m *memoryUsers) FindByPasswordResetToken(ctx context.Context, token string) (*auth.User, error) {
	return m.FindByPasswordResetTokenTx(ctx, nil, token)
}

func (m *memoryUsers) FindByPasswordResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" {
		return nil, nil
	}
	return m.findBy(func(u *auth.User) bool {
		return u.PasswordResetToken == token
	}), nil
}

func (m *memoryUsers) FindByEmailVerificationToken(ctx context.Context, token string) (*auth.User, error) {
	return m.FindByEmailVerificationTokenTx(ctx, nil, token)
}

func (m *memoryUsers) FindByEmailVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" {
		return nil, nil
	}
	return m.findBy(func(u *auth.User) bool {
		return u.EmailVerificationToken == token
	}), nil
}

func (m *memoryUsers) Save(ctx context.Context, record *auth.User) (*auth.User, error) {
	return m.SaveTx(ctx, nil, record)
}

func (m *memoryUsers) SaveTx(ctx context.Context, tx bun.IDB, record *auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Role == "" {
		record.Role = auth.RoleUser
	}

	cp := *record
	m.records[record.ID] = &cp
	return record, nil
}

func (m *memoryUsers) ConsumePasswordResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token == "" {
		return nil, nil
	}

	for _, u := range m.records {
		if u.PasswordResetToken == token {
			u.PasswordHash = passwordHash
			u.PasswordResetToken = ""
			u.TokenExpiryDate = nil
			cp := *u
			return &cp, nil
		}
	}

	return nil, nil
}

func (m *memoryUsers) ConsumeEmailVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token == "" {
		return nil, nil
	}

	for _, u := range m.records {
		if u.EmailVerificationToken == token {
			u.Verified = true
			u.EmailVerificationToken = ""
			cp := *u
			return &cp, nil
		}
	}

	return nil, nil
}

// memoryRepo satisfies RepositoryManager for handler tests. Transactions run
// the body directly; the handlers only forward the tx handle.
type memoryRepo struct {
	users *memoryUsers
}

var _ auth.RepositoryManager = (*memoryRepo)(nil)

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: newMemoryUsers()}
}

func (m *memoryRepo) Users() auth.Users { return m.users }

func (m *memoryRepo) Validate() error { return nil }

func (m *memoryRepo) MustValidate() {}

func (m *memoryRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn(ctx, bun.Tx{})
	}
}

// MockSender implements auth.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendVerificationEmail(to, token string) error {
	args := m.Called(to, token)
	return args.Error(0)
}

func (m *MockSender) SendResetPasswordEmail(to, token string) error {
	args := m.Called(to, token)
	return args.Error(0)
}

func newSilentSender() *MockSender {
	sender := &MockSender{}
	sender.On("SendVerificationEmail", mock.Anything, mock.Anything).Return(nil)
	sender.On("SendResetPasswordEmail", mock.Anything, mock.Anything).Return(nil)
	return sender
}
