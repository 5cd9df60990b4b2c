package cotn

import (
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MarshalYAML renders v as a YAML node, keeping record fields in order.
func (v Value) MarshalYAML() (any, error) {
	return v.yamlNode(), nil
}

func (v Value) yamlNode() *yaml.Node {
	switch v.kind {
	case KindBool:
		return scalarNode("!!bool", strconv.FormatBool(v.boolVal))
	case KindNumber:
		return numberNode(v.numVal)
	case KindText:
		return scalarNode("!!str", v.strVal)
	case KindList:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.listVal {
			node.Content = append(node.Content, e.yamlNode())
		}
		return node
	case KindRecord:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, e := range v.recVal.All() {
			node.Content = append(node.Content, scalarNode("!!str", k), e.yamlNode())
		}
		return node
	default:
		return scalarNode("!!null", "null")
	}
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// numberNode writes whole numbers as integers and everything else in the
// shortest float form YAML understands.
func numberNode(f float64) *yaml.Node {
	switch {
	case math.IsNaN(f):
		return scalarNode("!!float", ".nan")
	case math.IsInf(f, 1):
		return scalarNode("!!float", ".inf")
	case math.IsInf(f, -1):
		return scalarNode("!!float", "-.inf")
	case f == math.Trunc(f) && math.Abs(f) < 1<<53:
		return scalarNode("!!int", strconv.FormatInt(int64(f), 10))
	default:
		return scalarNode("!!float", strconv.FormatFloat(f, 'g', -1, 64))
	}
}

// MarshalYAML renders d as a mapping with version and value keys.
func (d Document) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	version := scalarNode("!!null", "null")
	if d.HasVersion() {
		version = scalarNode("!!str", d.Version)
	}
	root := scalarNode("!!null", "null")
	if d.Root != nil {
		root = d.Root.yamlNode()
	}

	node.Content = append(node.Content,
		scalarNode("!!str", "version"), version,
		scalarNode("!!str", "value"), root,
	)
	return node, nil
}
