package identity_test

import (
	"context"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/mock"
)

// MockUserStore implements identity.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByExternalIdentity(ctx context.Context, externalID, provider string) (*identity.UserProfile, error) {
	args := m.Called(ctx, externalID, provider)
	var user *identity.UserProfile
	if v := args.Get(0); v != nil {
		user = v.(*identity.UserProfile)
	}
	return user, args.Error(1)
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*identity.UserProfile, *identity.Credential, error) {
	args := m.Called(ctx, email)
	var user *identity.UserProfile
	if v := args.Get(0); v != nil {
		user = v.(*identity.UserProfile)
	}
	var cred *identity.Credential
	if v := args.Get(1); v != nil {
		cred = v.(*identity.Credential)
	}
	return user, cred, args.Error(2)
}

func (m *MockUserStore) CountUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUserStore) CreateUser(ctx context.Context, record *identity.UserProfile) (*identity.UserProfile, error) {
	args := m.Called(ctx, record)
	var user *identity.UserProfile
	if v := args.Get(0); v != nil {
		user = v.(*identity.UserProfile)
	}
	return user, args.Error(1)
}

func (m *MockUserStore) UpdateUser(ctx context.Context, record *identity.UserProfile) (*identity.UserProfile, error) {
	args := m.Called(ctx, record)
	var user *identity.UserProfile
	if v := args.Get(0); v != nil {
		user = v.(*identity.UserProfile)
	}
	return user, args.Error(1)
}

func (m *MockUserStore) SaveCredential(ctx context.Context, record *identity.Credential) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// capturingSink collects recorded activity events.
type capturingSink struct {
	events []identity.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, event identity.ActivityEvent) error {
	c.events = append(c.events, event)
	return nil
}

// capturingTracker collects analytics calls.
type capturingTracker struct {
	events   []string
	payloads []map[string]any
}

func (c *capturingTracker) Track(ctx context.Context, event string, payload map[string]any) error {
	c.events = append(c.events, event)
	c.payloads = append(c.payloads, payload)
	return nil
}

// silentLogger swallows log output in tests.
type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

// countingLogger counts error-level log lines.
type countingLogger struct {
	silentLogger
	errors int
}

func (c *countingLogger) Error(string, ...any) { c.errors++ }
