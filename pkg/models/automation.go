// Package models defines the core domain models for tenant automation graphs
// and the follow-up message queue.
package models

// NodeType represents the structural role of a node in an automation graph.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeAction    NodeType = "action"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeCondition NodeType = "condition"
	NodeTypeNote      NodeType = "note"
)

// IsValid checks if the node type is one of the executable or annotation kinds.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeTrigger, NodeTypeAction, NodeTypeDelay, NodeTypeCondition, NodeTypeNote:
		return true
	default:
		return false
	}
}

// Port identifies which output of a node an edge leaves from. Condition nodes
// emit on true/false; every other node type emits on out.
type Port string

const (
	PortOut   Port = "out"
	PortTrue  Port = "true"
	PortFalse Port = "false"
)

// Edge is a directed connection between two nodes of the same automation.
type Edge struct {
	From     string `json:"from"      validate:"required"`
	FromPort Port   `json:"from_port"`
	To       string `json:"to"        validate:"required"`
}

// Automation is a tenant-owned named graph of triggers, conditions, delays and
// actions. The engine treats it as read-only; the configuration layer owns all
// mutation.
type Automation struct {
	ID    string  `json:"id"    validate:"required"`
	Name  string  `json:"name"  validate:"required,min=1"`
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NodeByID returns the node with the given id, or nil.
func (a *Automation) NodeByID(id string) *Node {
	for _, node := range a.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// TriggerNodes returns every trigger node in the graph.
func (a *Automation) TriggerNodes() []*Node {
	var triggers []*Node

	for _, node := range a.Nodes {
		if node.Type == NodeTypeTrigger {
			triggers = append(triggers, node)
		}
	}

	return triggers
}

// EdgeFrom returns the first edge leaving nodeID on port, or nil when the node
// has no outgoing edge there. Multiple edges on one port are a store-side config
// error; the walk follows the first in document order.
func (a *Automation) EdgeFrom(nodeID string, port Port) *Edge {
	for _, edge := range a.Edges {
		edgePort := edge.FromPort
		if edgePort == "" {
			edgePort = PortOut
		}

		if edge.From == nodeID && edgePort == port {
			return edge
		}
	}

	return nil
}
