package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cadenzahq/cadenza/pkg/mocks"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

func ownerProfile() *protocol.OwnerProfile {
	return &protocol.OwnerProfile{
		Email:        "owner@example.com",
		Phone:        "+15559990000",
		BusinessName: "Acme Plumbing",
	}
}

func memberList(id, email string) []protocol.Member {
	return []protocol.Member{{ID: id, Email: email, Active: true}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func newTestEngine(collaborators Collaborators) *Engine {
	return NewEngine(nil, collaborators, nil, nil, testLogger())
}

func triggerNode(id string, kind models.TriggerKind) *models.Node {
	return &models.Node{
		ID:     id,
		Type:   models.NodeTypeTrigger,
		Config: models.TriggerConfig{Kind: kind},
	}
}

func actionNode(id string, config models.ActionConfig) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeAction, Config: config}
}

func edge(from string, port models.Port, to string) *models.Edge {
	return &models.Edge{From: from, FromPort: port, To: to}
}

func TestRun_TriggerAndAction(t *testing.T) {
	sms := &mocks.MockSMSSender{}
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "Hi Ana").Return(nil)

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Greeter",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerInboundMessage),
			actionNode("a1", models.ActionConfig{
				Kind:          models.ActionSendSMS,
				RecipientMode: models.RecipientInboundSender,
				Body:          "Hi {contact.firstName}",
			}),
		},
		Edges: []*models.Edge{edge("t1", models.PortOut, "a1")},
	}

	event := &models.TriggerEvent{
		Kind:    models.TriggerInboundMessage,
		Message: &models.Message{From: "+15550001111", Body: "hello"},
		Contact: &models.Contact{Name: "Ana Silva"},
	}

	contacts := &mocks.MockContactStore{}
	contacts.On("FindOrCreate", mock.Anything, "owner-1", "Ana Silva", "", "").Return("c-1", nil)
	contacts.On("ByID", mock.Anything, "owner-1", "c-1").
		Return(&models.Contact{ID: "c-1", Name: "Ana Silva", Phone: "+15550001111"}, nil)

	e := newTestEngine(Collaborators{SMS: sms, Contacts: contacts})

	results := e.Run(context.Background(), "owner-1", automation, event)
	require.Len(t, results, 1)
	assert.Equal(t, ReasonCompleted, results[0].Reason)
	require.Len(t, results[0].Outcomes, 1)
	assert.Equal(t, OutcomeOK, results[0].Outcomes[0].Status)
	sms.AssertExpectations(t)
	contacts.AssertExpectations(t)
}

func TestRun_EventContactUsedWithoutContactStore(t *testing.T) {
	sms := &mocks.MockSMSSender{}
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "Hi Ana").Return(nil)

	e := newTestEngine(Collaborators{SMS: sms})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Greeter",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerMissedAppointment),
			actionNode("a1", models.ActionConfig{
				Kind:          models.ActionSendSMS,
				RecipientMode: models.RecipientEventContact,
				Body:          "Hi {contact.firstName}",
			}),
		},
		Edges: []*models.Edge{edge("t1", models.PortOut, "a1")},
	}

	event := &models.TriggerEvent{
		Kind:    models.TriggerMissedAppointment,
		Contact: &models.Contact{Name: "Ana Silva", Phone: "+15550001111"},
	}

	results := e.Run(context.Background(), "owner-1", automation, event)
	require.Len(t, results, 1)
	require.Len(t, results[0].Outcomes, 1)
	assert.Equal(t, OutcomeOK, results[0].Outcomes[0].Status)
	sms.AssertExpectations(t)
}

func TestRun_EventContactSurvivesStoreFailure(t *testing.T) {
	contacts := &mocks.MockContactStore{}
	contacts.On("FindOrCreate", mock.Anything, "owner-1", "Ana Silva", "", "+15550001111").
		Return("", errors.New("store down"))

	sms := &mocks.MockSMSSender{}
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "Hi Ana").Return(nil)

	e := newTestEngine(Collaborators{Contacts: contacts, SMS: sms})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Greeter",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerInboundMessage),
			actionNode("a1", models.ActionConfig{
				Kind:          models.ActionSendSMS,
				RecipientMode: models.RecipientEventContact,
				Body:          "Hi {contact.firstName}",
			}),
		},
		Edges: []*models.Edge{edge("t1", models.PortOut, "a1")},
	}

	event := &models.TriggerEvent{
		Kind:    models.TriggerInboundMessage,
		Contact: &models.Contact{Name: "Ana Silva", Phone: "+15550001111"},
	}

	results := e.Run(context.Background(), "owner-1", automation, event)
	require.Len(t, results, 1)
	require.Len(t, results[0].Outcomes, 1)
	assert.Equal(t, OutcomeOK, results[0].Outcomes[0].Status)
	sms.AssertExpectations(t)
	contacts.AssertExpectations(t)
}

func TestRun_NoMatchingTriggerIsNoOp(t *testing.T) {
	e := newTestEngine(Collaborators{})

	automation := &models.Automation{
		ID:    "auto-1",
		Name:  "Greeter",
		Nodes: []*models.Node{triggerNode("t1", models.TriggerNewLead)},
	}

	results := e.Run(context.Background(), "owner-1", automation, &models.TriggerEvent{Kind: models.TriggerInboundMessage})
	assert.Nil(t, results)
}

func TestRun_TagAddedFilter(t *testing.T) {
	tags := &mocks.MockTagStore{}
	e := newTestEngine(Collaborators{Tags: tags})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "VIP only",
		Nodes: []*models.Node{
			{
				ID:     "t1",
				Type:   models.NodeTypeTrigger,
				Config: models.TriggerConfig{Kind: models.TriggerTagAdded, TagID: "vip"},
			},
			actionNode("a1", models.ActionConfig{Kind: models.ActionAddTag, TagID: "welcomed"}),
		},
		Edges: []*models.Edge{edge("t1", models.PortOut, "a1")},
	}

	event := &models.TriggerEvent{
		Kind: models.TriggerTagAdded,
		Meta: models.EventMeta{TagID: "other"},
	}

	assert.Nil(t, e.Run(context.Background(), "owner-1", automation, event))

	event.Meta.TagID = ""
	assert.Nil(t, e.Run(context.Background(), "owner-1", automation, event))

	tags.AssertNotCalled(t, "AssignTag", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_TriggerNodeIDFilter(t *testing.T) {
	e := newTestEngine(Collaborators{})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Two schedules",
		Nodes: []*models.Node{
			{ID: "t1", Type: models.NodeTypeTrigger, Config: models.TriggerConfig{Kind: models.TriggerScheduledTime, IntervalMinutes: 60}},
			{ID: "t2", Type: models.NodeTypeTrigger, Config: models.TriggerConfig{Kind: models.TriggerScheduledTime, IntervalMinutes: 30}},
		},
	}

	event := &models.TriggerEvent{
		Kind: models.TriggerScheduledTime,
		Meta: models.EventMeta{TriggerNodeID: "t2"},
	}

	results := e.Run(context.Background(), "owner-1", automation, event)
	require.Len(t, results, 1)
	assert.Equal(t, "t2", results[0].TriggerNodeID)
}

func TestRun_ConditionBranching(t *testing.T) {
	sms := &mocks.MockSMSSender{}
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "matched").Return(nil)

	e := newTestEngine(Collaborators{SMS: sms})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Brancher",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerInboundMessage),
			{
				ID:   "c1",
				Type: models.NodeTypeCondition,
				Config: models.ConditionConfig{
					Left:  "message.body",
					Op:    "contains",
					Right: "PRICING",
				},
			},
			actionNode("yes", models.ActionConfig{
				Kind:          models.ActionSendSMS,
				RecipientMode: models.RecipientInboundSender,
				Body:          "matched",
			}),
			actionNode("no", models.ActionConfig{
				Kind:          models.ActionSendSMS,
				RecipientMode: models.RecipientInboundSender,
				Body:          "not matched",
			}),
		},
		Edges: []*models.Edge{
			edge("t1", models.PortOut, "c1"),
			edge("c1", models.PortTrue, "yes"),
			edge("c1", models.PortFalse, "no"),
		},
	}

	event := &models.TriggerEvent{
		Kind:    models.TriggerInboundMessage,
		Message: &models.Message{From: "+15550001111", Body: "tell me about pricing please"},
	}

	results := e.Run(context.Background(), "owner-1", automation, event)
	require.Len(t, results, 1)
	require.Len(t, results[0].Outcomes, 1)
	assert.Equal(t, "yes", results[0].Outcomes[0].NodeID)
	sms.AssertExpectations(t)
}

func TestRun_CycleTerminatesWithinBudget(t *testing.T) {
	e := newTestEngine(Collaborators{})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Loop",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			{ID: "d1", Type: models.NodeTypeDelay, Config: models.DelayConfig{Minutes: 5}},
		},
		Edges: []*models.Edge{
			edge("t1", models.PortOut, "d1"),
			edge("d1", models.PortOut, "d1"),
		},
	}

	results := e.Run(context.Background(), "owner-1", automation, &models.TriggerEvent{Kind: models.TriggerNewLead})
	require.Len(t, results, 1)
	assert.Equal(t, ReasonBudgetExceeded, results[0].Reason)
	assert.LessOrEqual(t, results[0].Steps, MaxWalkSteps+1)
}

func TestRun_MissingNodeEndsWalk(t *testing.T) {
	e := newTestEngine(Collaborators{})

	automation := &models.Automation{
		ID:    "auto-1",
		Name:  "Dangling edge",
		Nodes: []*models.Node{triggerNode("t1", models.TriggerNewLead)},
		Edges: []*models.Edge{edge("t1", models.PortOut, "ghost")},
	}

	results := e.Run(context.Background(), "owner-1", automation, &models.TriggerEvent{Kind: models.TriggerNewLead})
	require.Len(t, results, 1)
	assert.Equal(t, ReasonNodeMissing, results[0].Reason)
}

func TestRun_ActionFailureDoesNotStopWalk(t *testing.T) {
	sms := &mocks.MockSMSSender{}
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "first").
		Return(errors.New("provider down"))
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550001111", "second").Return(nil)

	e := newTestEngine(Collaborators{SMS: sms})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Two sends",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerInboundMessage),
			actionNode("a1", models.ActionConfig{Kind: models.ActionSendSMS, RecipientMode: models.RecipientInboundSender, Body: "first"}),
			actionNode("a2", models.ActionConfig{Kind: models.ActionSendSMS, RecipientMode: models.RecipientInboundSender, Body: "second"}),
		},
		Edges: []*models.Edge{
			edge("t1", models.PortOut, "a1"),
			edge("a1", models.PortOut, "a2"),
		},
	}

	event := &models.TriggerEvent{
		Kind:    models.TriggerInboundMessage,
		Message: &models.Message{From: "+15550001111"},
	}

	results := e.Run(context.Background(), "owner-1", automation, event)
	require.Len(t, results, 1)
	assert.Equal(t, ReasonCompleted, results[0].Reason)
	require.Len(t, results[0].Outcomes, 2)
	assert.Equal(t, OutcomeFailed, results[0].Outcomes[0].Status)
	assert.Equal(t, OutcomeOK, results[0].Outcomes[1].Status)
	sms.AssertExpectations(t)
}

func TestRun_FindContactFanOut(t *testing.T) {
	tags := &mocks.MockTagStore{}
	tags.On("ContactsByTag", mock.Anything, "owner-1", "vip", models.FindAll, MaxFanOutContacts).
		Return([]string{"c-1", "c-2"}, nil)

	contacts := &mocks.MockContactStore{}
	contacts.On("ByID", mock.Anything, "owner-1", "c-1").
		Return(&models.Contact{ID: "c-1", Name: "Ana", Phone: "+15550000001"}, nil)
	contacts.On("ByID", mock.Anything, "owner-1", "c-2").
		Return(&models.Contact{ID: "c-2", Name: "Bruno", Phone: "+15550000002"}, nil)

	sms := &mocks.MockSMSSender{}
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550000001", "Hi Ana").Return(nil)
	sms.On("SendSMS", mock.Anything, "owner-1", "+15550000002", "Hi Bruno").Return(nil)

	e := newTestEngine(Collaborators{Tags: tags, Contacts: contacts, SMS: sms})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Blast",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			actionNode("find", models.ActionConfig{
				Kind:     models.ActionFindContact,
				TagID:    "vip",
				FindMode: models.FindAll,
			}),
			actionNode("send", models.ActionConfig{
				Kind:          models.ActionSendSMS,
				RecipientMode: models.RecipientEventContact,
				Body:          "Hi {contact.firstName}",
			}),
		},
		Edges: []*models.Edge{
			edge("t1", models.PortOut, "find"),
			edge("find", models.PortOut, "send"),
		},
	}

	results := e.Run(context.Background(), "owner-1", automation, &models.TriggerEvent{Kind: models.TriggerNewLead})
	require.Len(t, results, 1)
	assert.Equal(t, ReasonCompleted, results[0].Reason)

	// One fan-out outcome plus one send per matched contact.
	require.Len(t, results[0].Outcomes, 3)
	sms.AssertExpectations(t)
}

func TestRun_FanOutVisitsAreCountedPerSubWalk(t *testing.T) {
	contacts := &mocks.MockContactStore{}
	sms := &mocks.MockSMSSender{}

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("c-%d", i)
		phone := fmt.Sprintf("+1555000%04d", i)
		contacts.On("ByID", mock.Anything, "owner-1", ids[i]).
			Return(&models.Contact{ID: ids[i], Name: "Contact", Phone: phone}, nil)
		sms.On("SendSMS", mock.Anything, "owner-1", phone, "Hi Contact").Return(nil)
	}

	tags := &mocks.MockTagStore{}
	tags.On("ContactsByTag", mock.Anything, "owner-1", "vip", models.FindAll, MaxFanOutContacts).
		Return(ids, nil)

	e := newTestEngine(Collaborators{Tags: tags, Contacts: contacts, SMS: sms})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Big blast",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			actionNode("find", models.ActionConfig{
				Kind:     models.ActionFindContact,
				TagID:    "vip",
				FindMode: models.FindAll,
			}),
			actionNode("send", models.ActionConfig{
				Kind:          models.ActionSendSMS,
				RecipientMode: models.RecipientEventContact,
				Body:          "Hi {contact.firstName}",
			}),
		},
		Edges: []*models.Edge{
			edge("t1", models.PortOut, "find"),
			edge("find", models.PortOut, "send"),
		},
	}

	results := e.Run(context.Background(), "owner-1", automation, &models.TriggerEvent{Kind: models.TriggerNewLead})
	require.Len(t, results, 1)

	// Every sub-walk revisits the same send node; its visit counter must not
	// carry over between contacts.
	assert.Equal(t, ReasonCompleted, results[0].Reason)
	require.Len(t, results[0].Outcomes, len(ids)+1)
	sms.AssertExpectations(t)
}

func TestRun_AssignLeadUpdatesContext(t *testing.T) {
	leads := &mocks.MockLeadStore{}
	leads.On("AssignLead", mock.Anything, "owner-1", "lead-9", "member-1").Return(nil)

	directory := &mocks.MockTenantDirectory{}
	directory.On("Profile", mock.Anything, "owner-1").Return(ownerProfile(), nil).Maybe()
	directory.On("Members", mock.Anything, "owner-1").
		Return(memberList("member-1", "member-1@example.com"), nil)
	directory.On("CustomVariables", mock.Anything, "owner-1").Return(map[string]string{}, nil).Maybe()

	email := &mocks.MockEmailSender{}
	email.On("SendEmail", mock.Anything, "owner-1", "member-1@example.com", "New lead", mock.Anything, mock.Anything).
		Return(nil)

	e := newTestEngine(Collaborators{Leads: leads, Directory: directory, Email: email})

	automation := &models.Automation{
		ID:   "auto-1",
		Name: "Route lead",
		Nodes: []*models.Node{
			triggerNode("t1", models.TriggerNewLead),
			actionNode("assign", models.ActionConfig{Kind: models.ActionAssignLead, AssigneeUserID: "member-1"}),
			actionNode("notify", models.ActionConfig{
				Kind:          models.ActionSendEmail,
				RecipientMode: models.RecipientAssignedLead,
				Subject:       "New lead",
				Body:          "A lead came in",
			}),
		},
		Edges: []*models.Edge{
			edge("t1", models.PortOut, "assign"),
			edge("assign", models.PortOut, "notify"),
		},
	}

	event := &models.TriggerEvent{
		Kind: models.TriggerNewLead,
		Meta: models.EventMeta{LeadID: "lead-9"},
	}

	results := e.Run(context.Background(), "owner-1", automation, event)
	require.Len(t, results, 1)
	require.Len(t, results[0].Outcomes, 2)
	assert.Equal(t, OutcomeOK, results[0].Outcomes[0].Status)
	assert.Equal(t, OutcomeOK, results[0].Outcomes[1].Status)
	leads.AssertExpectations(t)
	email.AssertExpectations(t)
}
