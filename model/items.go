package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeType discriminates discovery items.
type NodeType string

// NodeType values.
const (
	NodeDirectory NodeType = "directory"
	NodeModule    NodeType = "module"
	NodeSuite     NodeType = "suite"
	NodeCase      NodeType = "case"
)

// DiscoveryItem is one collected entity: a TestDirectory, TestModule, TestSuite or TestCase.
type DiscoveryItem interface {
	NodeType() NodeType
	ID() string
}

// TestDirectory is a collected directory.
type TestDirectory struct {
	NodeID string `json:"node_id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
}

// NodeType implements DiscoveryItem.
func (TestDirectory) NodeType() NodeType { return NodeDirectory }

// ID implements DiscoveryItem.
func (d TestDirectory) ID() string { return d.NodeID }

// MarshalJSON adds the node_type discriminator.
func (d TestDirectory) MarshalJSON() ([]byte, error) {
	type alias TestDirectory

	return json.Marshal(struct {
		NodeType NodeType `json:"node_type"`
		alias
	}{NodeDirectory, alias(d)})
}

// TestModule is a collected source file holding tests.
type TestModule struct {
	NodeID  string   `json:"node_id"`
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Doc     string   `json:"doc"`
	Markers []string `json:"markers"`
}

// NodeType implements DiscoveryItem.
func (TestModule) NodeType() NodeType { return NodeModule }

// ID implements DiscoveryItem.
func (m TestModule) ID() string { return m.NodeID }

// MarshalJSON adds the node_type discriminator.
func (m TestModule) MarshalJSON() ([]byte, error) {
	type alias TestModule

	return json.Marshal(struct {
		NodeType NodeType `json:"node_type"`
		alias
	}{NodeModule, alias(m)})
}

// TestSuite is a collected class or other grouping of test cases.
type TestSuite struct {
	NodeID  string   `json:"node_id"`
	Name    string   `json:"name"`
	Module  string   `json:"module"`
	Path    string   `json:"path"`
	Doc     string   `json:"doc"`
	Markers []string `json:"markers"`
}

// NodeType implements DiscoveryItem.
func (TestSuite) NodeType() NodeType { return NodeSuite }

// ID implements DiscoveryItem.
func (s TestSuite) ID() string { return s.NodeID }

// MarshalJSON adds the node_type discriminator.
func (s TestSuite) MarshalJSON() ([]byte, error) {
	type alias TestSuite

	return json.Marshal(struct {
		NodeType NodeType `json:"node_type"`
		alias
	}{NodeSuite, alias(s)})
}

// TestCase is a collected test function, one per parametrization.
// Parameters maps argument names to type names.
type TestCase struct {
	NodeID     string            `json:"node_id"`
	Name       string            `json:"name"`
	Module     string            `json:"module"`
	Suite      string            `json:"suite,omitempty"`
	Function   string            `json:"function"`
	Path       string            `json:"path,omitempty"`
	Doc        string            `json:"doc"`
	Markers    []string          `json:"markers"`
	Parameters map[string]string `json:"parameters"`
}

// NodeType implements DiscoveryItem.
func (TestCase) NodeType() NodeType { return NodeCase }

// ID implements DiscoveryItem.
func (c TestCase) ID() string { return c.NodeID }

// MarshalJSON adds the node_type discriminator.
func (c TestCase) MarshalJSON() ([]byte, error) {
	type alias TestCase

	return json.Marshal(struct {
		NodeType NodeType `json:"node_type"`
		alias
	}{NodeCase, alias(c)})
}

// CollectReport holds the items produced by one collection callback.
// NodeID is the collected parent, empty for the session root.
type CollectReport struct {
	SessionID string          `json:"session_id"`
	NodeID    string          `json:"node_id"`
	Timestamp time.Time       `json:"timestamp"`
	Items     []DiscoveryItem `json:"items"`
}

// EventName implements Event.
func (CollectReport) EventName() string { return EventCollectReport }

// MarshalJSON adds the event discriminator.
func (r CollectReport) MarshalJSON() ([]byte, error) {
	type alias CollectReport

	return json.Marshal(struct {
		Event string `json:"event"`
		alias
	}{EventCollectReport, alias(r)})
}

// UnmarshalJSON decodes items according to their node_type.
func (r *CollectReport) UnmarshalJSON(data []byte) error {
	type alias CollectReport

	var raw struct {
		alias
		Items []json.RawMessage `json:"items"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	items := make([]DiscoveryItem, 0, len(raw.Items))

	for i, msg := range raw.Items {
		item, err := decodeItem(msg)
		if err != nil {
			return fmt.Errorf("collect report %q item %d: %w", raw.NodeID, i, err)
		}

		items = append(items, item)
	}

	*r = CollectReport(raw.alias)
	r.Items = items

	return nil
}

func decodeItem(data []byte) (DiscoveryItem, error) {
	var head struct {
		NodeType NodeType `json:"node_type"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.NodeType {
	case NodeDirectory:
		var d TestDirectory
		err := json.Unmarshal(data, &d)

		return d, err
	case NodeModule:
		var m TestModule
		err := json.Unmarshal(data, &m)

		return m, err
	case NodeSuite:
		var s TestSuite
		err := json.Unmarshal(data, &s)

		return s, err
	case NodeCase:
		var c TestCase
		err := json.Unmarshal(data, &c)

		return c, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, head.NodeType)
	}
}
