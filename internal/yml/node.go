// Package yml wraps yaml.Node with the small set of helpers the experiment
// decoder needs: mapping traversal and tolerant scalar conversion.
package yml

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Node yaml.Node

// Root unwraps a document node to its first content node.
func Root(n *yaml.Node) *Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return (*Node)(n.Content[0])
	}
	return (*Node)(n)
}

// Pairs iterates key/value pairs of a mapping node.
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		value := (*Node)(n.Content[i+1])
		if err := callback(key, value); err != nil {
			return err
		}
	}
	return nil
}

// IsMapping reports whether the node is a YAML mapping.
func (n *Node) IsMapping() bool {
	return n.Kind == yaml.MappingNode
}

// Text returns the scalar value as a string.
func (n *Node) Text() string {
	return n.Value
}

// Int converts the scalar value to an int; non-numeric values yield zero.
func (n *Node) Int() int {
	switch n.Tag {
	case "!!int":
		value, _ := strconv.Atoi(n.Value)
		return value
	case "!!float":
		value, _ := strconv.ParseFloat(n.Value, 64)
		return int(value)
	}
	value, _ := strconv.Atoi(n.Value)
	return value
}

// Float converts the scalar value to a float64; non-numeric values yield zero.
func (n *Node) Float() float64 {
	value, _ := strconv.ParseFloat(n.Value, 64)
	return value
}

// Bool converts the scalar value to a bool. YAML truthy spellings (true/yes/on
// and 0/1 used by some configuration generators) are accepted.
func (n *Node) Bool() bool {
	switch strings.ToLower(n.Value) {
	case "true", "yes", "on", "1":
		return true
	}
	return false
}
