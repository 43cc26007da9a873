package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/cadenzahq/cadenza/pkg/condition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeUnmarshal_TriggerConfig(t *testing.T) {
	data := []byte(`{
		"id": "t1",
		"type": "trigger",
		"config": {"kind": "tag_added", "tag_id": "vip"}
	}`)

	var node Node

	require.NoError(t, json.Unmarshal(data, &node))
	assert.Equal(t, "t1", node.ID)
	assert.Equal(t, NodeTypeTrigger, node.Type)

	config, ok := node.TriggerConfigOf()
	require.True(t, ok)
	assert.Equal(t, TriggerTagAdded, config.Kind)
	assert.Equal(t, "vip", config.TagID)
}

func TestNodeUnmarshal_ConditionConfig(t *testing.T) {
	data := []byte(`{
		"id": "c1",
		"type": "condition",
		"config": {"left": "message.body", "op": "contains", "right": "yes"}
	}`)

	var node Node

	require.NoError(t, json.Unmarshal(data, &node))

	config, ok := node.ConditionConfigOf()
	require.True(t, ok)
	assert.Equal(t, condition.OpContains, config.Op)
	assert.Equal(t, "message.body", config.Left)
}

func TestNodeUnmarshal_UnknownType(t *testing.T) {
	data := []byte(`{"id": "x1", "type": "loop", "config": {}}`)

	var node Node

	err := json.Unmarshal(data, &node)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownNodeType))
}

func TestNodeUnmarshal_UnknownActionKind(t *testing.T) {
	data := []byte(`{"id": "a1", "type": "action", "config": {"kind": "launch_rocket"}}`)

	var node Node

	err := json.Unmarshal(data, &node)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidNodeConfig))
}

func TestNodeUnmarshal_UnknownOperator(t *testing.T) {
	data := []byte(`{"id": "c1", "type": "condition", "config": {"left": "a", "op": "regex", "right": "b"}}`)

	var node Node

	err := json.Unmarshal(data, &node)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidNodeConfig))
}

func TestNodeUnmarshal_MissingConfigDefaults(t *testing.T) {
	// Note nodes commonly omit config entirely.
	data := []byte(`{"id": "n1", "type": "note"}`)

	var node Node

	require.NoError(t, json.Unmarshal(data, &node))
	assert.Equal(t, NoteConfig{}, node.Config)
}

func TestNodeMarshalRoundTrip(t *testing.T) {
	node := Node{
		ID:   "a1",
		Type: NodeTypeAction,
		Name: "welcome sms",
		Config: ActionConfig{
			Kind:          ActionSendSMS,
			RecipientMode: RecipientEventContact,
			Body:          "Welcome {contact.name}!",
		},
	}

	encoded, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded Node

	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, node, decoded)
}

func TestAutomationEdgeFrom(t *testing.T) {
	automation := &Automation{
		ID:   "auto-1",
		Name: "branching",
		Nodes: []*Node{
			{ID: "c1", Type: NodeTypeCondition, Config: ConditionConfig{Left: "a", Op: condition.OpEquals, Right: "a"}},
		},
		Edges: []*Edge{
			{From: "c1", FromPort: PortTrue, To: "a1"},
			{From: "c1", FromPort: PortFalse, To: "a2"},
			{From: "a1", To: "a3"}, // empty port defaults to out
		},
	}

	require.NotNil(t, automation.EdgeFrom("c1", PortTrue))
	assert.Equal(t, "a1", automation.EdgeFrom("c1", PortTrue).To)
	assert.Equal(t, "a2", automation.EdgeFrom("c1", PortFalse).To)
	assert.Equal(t, "a3", automation.EdgeFrom("a1", PortOut).To)
	assert.Nil(t, automation.EdgeFrom("c1", PortOut))
	assert.Nil(t, automation.EdgeFrom("a3", PortOut))
}
