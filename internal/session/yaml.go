package session

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// MarshalYAML renders the visible attributes as a mapping sorted by name.
func (s *Session) MarshalYAML() (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range slices.Sorted(s.attrs.Keys()) {
		value, _ := s.attrs.Get(name)

		var valueNode yaml.Node
		if err := valueNode.Encode(value); err != nil {
			return nil, fmt.Errorf("encoding attribute %q: %w", name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&valueNode,
		)
	}
	return node, nil
}

// DumpYAML returns the visible attributes as a YAML document.
func (s *Session) DumpYAML() ([]byte, error) {
	return yaml.Marshal(s)
}
