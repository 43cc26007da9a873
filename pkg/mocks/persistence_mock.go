package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Owners(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPersistence) Automations(ctx context.Context, ownerID string) ([]*models.Automation, error) {
	args := m.Called(ctx, ownerID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Automation), args.Error(1)
}

func (m *MockPersistence) SaveAutomations(ctx context.Context, ownerID string, automations []*models.Automation) error {
	args := m.Called(ctx, ownerID, automations)

	return args.Error(0)
}

func (m *MockPersistence) FollowUps(ctx context.Context, ownerID string) (*models.FollowUpDocument, error) {
	args := m.Called(ctx, ownerID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.FollowUpDocument), args.Error(1)
}

func (m *MockPersistence) SaveFollowUps(ctx context.Context, ownerID string, doc *models.FollowUpDocument) error {
	args := m.Called(ctx, ownerID, doc)

	return args.Error(0)
}

func (m *MockPersistence) ScheduleState(ctx context.Context, ownerID string) (*models.ScheduleDocument, error) {
	args := m.Called(ctx, ownerID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ScheduleDocument), args.Error(1)
}

func (m *MockPersistence) SaveScheduleState(ctx context.Context, ownerID string, doc *models.ScheduleDocument) error {
	args := m.Called(ctx, ownerID, doc)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
