package secrets

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a secrets file. The document is a top-level mapping of
// service name to a mapping of secret key to scalar value:
//
//	billing:
//	  apikey: "XYZ"
//	  password: hunter2
//
// An empty document yields no services. A service whose value is empty or not
// a mapping is kept with an empty Table. Scalar values of any YAML type are
// taken as their literal text; nested mappings or sequences under a secret key
// fail the whole document.
func Parse(data []byte) (map[string]Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}

	services := make(map[string]Table)

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return services, nil
		}
		root = root.Content[0]
	}
	root = deref(root)

	switch {
	case root.Kind == 0:
		return services, nil
	case root.Kind == yaml.ScalarNode && root.Tag == "!!null":
		return services, nil
	case root.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("parse secrets: line %d: top level must be a mapping of service names", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		nameNode := deref(root.Content[i])
		valueNode := deref(root.Content[i+1])

		if nameNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse secrets: line %d: service name must be a scalar", nameNode.Line)
		}

		table, err := parseTable(nameNode.Value, valueNode)
		if err != nil {
			return nil, err
		}
		services[nameNode.Value] = table
	}

	return services, nil
}

// parseTable converts the mapping under one service into a Table. Keys are
// folded here, in document order, so a later duplicate wins deterministically.
func parseTable(service string, node *yaml.Node) (Table, error) {
	entries := make(map[string]string)
	if node.Kind != yaml.MappingNode {
		return Table{entries: entries}, nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := deref(node.Content[i])
		valNode := deref(node.Content[i+1])

		if keyNode.Kind != yaml.ScalarNode {
			return Table{}, fmt.Errorf("parse secrets: line %d: service %q: secret key must be a scalar", keyNode.Line, service)
		}
		if valNode.Kind != yaml.ScalarNode {
			return Table{}, fmt.Errorf("parse secrets: line %d: service %q key %q: value must be a scalar", valNode.Line, service, keyNode.Value)
		}

		value := valNode.Value
		if valNode.Tag == "!!null" {
			value = ""
		}
		entries[strings.ToLower(keyNode.Value)] = value
	}

	return Table{entries: entries}, nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
