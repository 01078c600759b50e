package types

import (
	"github.com/pkg/errors"
)

type Attribute struct {
	Name string
	Type Type
}

// Schema is the immutable ordered attribute list of a relation.
type Schema struct {
	attributes []Attribute
}

func NewSchema(attributes ...Attribute) (Schema, error) {
	if len(attributes) == 0 {
		return Schema{}, errors.New("schema must have at least one attribute")
	}

	seen := make(map[string]struct{}, len(attributes))
	for _, attr := range attributes {
		if attr.Name == "" {
			return Schema{}, errors.New("attribute name cannot be empty")
		}
		if _, ok := seen[attr.Name]; ok {
			return Schema{}, errors.Errorf("duplicate attribute %q", attr.Name)
		}
		if attr.Type < Integer || attr.Type > String {
			return Schema{}, errors.Errorf("attribute %q has unsupported type %s", attr.Name, attr.Type)
		}
		seen[attr.Name] = struct{}{}
	}

	return Schema{attributes: append([]Attribute(nil), attributes...)}, nil
}

func (s Schema) Len() int {
	return len(s.attributes)
}

func (s Schema) Attributes() []Attribute {
	return append([]Attribute(nil), s.attributes...)
}

func (s Schema) TypeList() []Type {
	res := make([]Type, len(s.attributes))
	for i, attr := range s.attributes {
		res[i] = attr.Type
	}
	return res
}

// Check returns the positions at which the tuple does not match the schema.
// Missing and surplus positions are reported too. An empty result means the
// tuple is well typed.
func (s Schema) Check(t Tuple) []int {
	return checkTypes(s.TypeList(), t)
}

func checkTypes(typeList []Type, t Tuple) []int {
	var positions []int

	n := max(len(typeList), len(t))
	for i := range n {
		if i >= len(typeList) || i >= len(t) || t[i] == nil || t[i].Type() != typeList[i] {
			positions = append(positions, i)
		}
	}

	return positions
}
