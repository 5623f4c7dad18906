package atlasfile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Pair is one name/value entry of an OrderedMap.
type Pair struct {
	Key   string
	Value string
}

// OrderedMap is a string map that keeps file order, so links and docs
// render the way the author wrote them.
type OrderedMap []Pair

// Get returns the value for key.
func (m OrderedMap) Get(key string) (string, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Set replaces the value for key in place, or appends it.
func (m *OrderedMap) Set(key, value string) {
	for i, p := range *m {
		if p.Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Pair{Key: key, Value: value})
}

// Delete removes key.
func (m *OrderedMap) Delete(key string) {
	for i, p := range *m {
		if p.Key == key {
			*m = append((*m)[:i], (*m)[i+1:]...)
			return
		}
	}
}

func (m *OrderedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of name to value", node.Line)
	}
	out := make(OrderedMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value for %q must be a string", v.Line, k.Value)
		}
		out.Set(k.Value, v.Value)
	}
	*m = out
	return nil
}

func (m OrderedMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range m {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Value},
		)
	}
	return node, nil
}

// MarshalJSON writes a JSON object in the same order.
func (m OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
