package document

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// MappingValue returns the position of key inside a mapping node and its
// value node, or -1 and nil
func MappingValue(m *yaml.Node, key string) (int, *yaml.Node) {
	if m == nil || m.Kind != yaml.MappingNode {
		return -1, nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i, m.Content[i+1]
		}
	}
	return -1, nil
}

// SetMappingValue replaces the value of key or appends the pair
func SetMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	if i, _ := MappingValue(m, key); i >= 0 {
		m.Content[i+1] = value
		return
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

// keyOrder puts discriminators first so rewritten items read naturally
var keyOrder = map[string]int{
	"platform":  0,
	"trigger":   0,
	"condition": 0,
	"action":    0,
	"service":   0,
	"entity_id": 1,
	"target":    2,
	"state":     3,
	"to":        3,
	"above":     4,
	"below":     5,
	"data":      6,
}

// ToNode encodes v into a node. Mapping keys are ordered with
// discriminators first, the rest alphabetically.
func ToNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case *yaml.Node:
		return t, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.SliceStable(keys, func(i, j int) bool {
			oi, iok := keyOrder[keys[i]]
			oj, jok := keyOrder[keys[j]]
			switch {
			case iok && jok && oi != oj:
				return oi < oj
			case iok != jok:
				return iok
			}
			return keys[i] < keys[j]
		})
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			child, err := ToNode(t[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			child, err := ToNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	}
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return &n, nil
}

// Clone deep copies a node tree
func Clone(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = Clone(child)
		}
	}
	if n.Alias != nil {
		c.Alias = Clone(n.Alias)
	}
	return &c
}

// Render encodes a node tree as YAML with two space indentation
func Render(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
