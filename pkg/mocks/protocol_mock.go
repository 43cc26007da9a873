// Package mocks provides mock implementations of the protocol interfaces for
// testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

// MockContactStore is a mock implementation of protocol.ContactStore.
type MockContactStore struct {
	mock.Mock
}

func (m *MockContactStore) FindOrCreate(ctx context.Context, ownerID, name, email, phone string) (string, error) {
	args := m.Called(ctx, ownerID, name, email, phone)

	return args.String(0), args.Error(1)
}

func (m *MockContactStore) ByID(ctx context.Context, ownerID, contactID string) (*models.Contact, error) {
	args := m.Called(ctx, ownerID, contactID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Contact), args.Error(1)
}

func (m *MockContactStore) Update(ctx context.Context, ownerID, contactID string, fields models.Contact) error {
	args := m.Called(ctx, ownerID, contactID, fields)

	return args.Error(0)
}

// MockTagStore is a mock implementation of protocol.TagStore.
type MockTagStore struct {
	mock.Mock
}

func (m *MockTagStore) AssignTag(ctx context.Context, ownerID, contactID, tagID string) error {
	args := m.Called(ctx, ownerID, contactID, tagID)

	return args.Error(0)
}

func (m *MockTagStore) ContactsByTag(ctx context.Context, ownerID, tagID string, mode models.FindMode, limit int) ([]string, error) {
	args := m.Called(ctx, ownerID, tagID, mode, limit)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

// MockLeadStore is a mock implementation of protocol.LeadStore.
type MockLeadStore struct {
	mock.Mock
}

func (m *MockLeadStore) LinkedContact(ctx context.Context, ownerID, leadID string) (string, error) {
	args := m.Called(ctx, ownerID, leadID)

	return args.String(0), args.Error(1)
}

func (m *MockLeadStore) LinkContact(ctx context.Context, ownerID, leadID, contactID string) error {
	args := m.Called(ctx, ownerID, leadID, contactID)

	return args.Error(0)
}

func (m *MockLeadStore) AssignLead(ctx context.Context, ownerID, leadID, userID string) error {
	args := m.Called(ctx, ownerID, leadID, userID)

	return args.Error(0)
}

// MockSMSSender is a mock implementation of protocol.SMSSender.
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendSMS(ctx context.Context, ownerID, to, body string) error {
	args := m.Called(ctx, ownerID, to, body)

	return args.Error(0)
}

// MockEmailSender is a mock implementation of protocol.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, ownerID, to, subject, text, fromName string) error {
	args := m.Called(ctx, ownerID, to, subject, text, fromName)

	return args.Error(0)
}

// MockWebhookSender is a mock implementation of protocol.WebhookSender.
type MockWebhookSender struct {
	mock.Mock
}

func (m *MockWebhookSender) PostJSON(ctx context.Context, url string, payload any) error {
	args := m.Called(ctx, url, payload)

	return args.Error(0)
}

// MockTaskStore is a mock implementation of protocol.TaskStore.
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) CreateTask(ctx context.Context, ownerID, title, description, assigneeUserID string) error {
	args := m.Called(ctx, ownerID, title, description, assigneeUserID)

	return args.Error(0)
}

// MockTenantDirectory is a mock implementation of protocol.TenantDirectory.
type MockTenantDirectory struct {
	mock.Mock
}

func (m *MockTenantDirectory) Profile(ctx context.Context, ownerID string) (*protocol.OwnerProfile, error) {
	args := m.Called(ctx, ownerID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.OwnerProfile), args.Error(1)
}

func (m *MockTenantDirectory) Members(ctx context.Context, ownerID string) ([]protocol.Member, error) {
	args := m.Called(ctx, ownerID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]protocol.Member), args.Error(1)
}

func (m *MockTenantDirectory) CustomVariables(ctx context.Context, ownerID string) (map[string]string, error) {
	args := m.Called(ctx, ownerID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]string), args.Error(1)
}

// MockLinkProvider is a mock implementation of protocol.LinkProvider.
type MockLinkProvider struct {
	mock.Mock
}

func (m *MockLinkProvider) ReviewLink(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)

	return args.String(0), args.Error(1)
}

func (m *MockLinkProvider) BookingLink(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)

	return args.String(0), args.Error(1)
}

// MockCampaignService is a mock implementation of protocol.CampaignService.
type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) Enroll(ctx context.Context, ownerID, contactID, campaignID string) error {
	args := m.Called(ctx, ownerID, contactID, campaignID)

	return args.Error(0)
}

// MockOutboundCallService is a mock implementation of protocol.OutboundCallService.
type MockOutboundCallService struct {
	mock.Mock
}

func (m *MockOutboundCallService) EnqueueCall(ctx context.Context, ownerID, contactID, campaignID string) error {
	args := m.Called(ctx, ownerID, contactID, campaignID)

	return args.Error(0)
}
