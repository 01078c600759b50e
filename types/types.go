package types

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Type is the declared type of a relation attribute.
type Type int

const (
	Integer Type = iota
	Float
	Boolean
	String
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Boolean:
		return "boolean"
	case String:
		return "string"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseType accepts the names returned by Type.String, case insensitively.
func ParseType(s string) (Type, error) {
	for t := Integer; t <= String; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown type %q", s)
}

// Value is a single attribute value. The set of implementations is closed.
type Value interface {
	Type() Type
	Equal(other Value) bool
	String() string
}

type IntValue int64

func (v IntValue) Type() Type { return Integer }

func (v IntValue) Equal(other Value) bool {
	o, ok := other.(IntValue)
	return ok && v == o
}

func (v IntValue) String() string { return strconv.FormatInt(int64(v), 10) }

type FloatValue float64

func (v FloatValue) Type() Type { return Float }

func (v FloatValue) Equal(other Value) bool {
	o, ok := other.(FloatValue)
	return ok && v == o
}

func (v FloatValue) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

type BoolValue bool

func (v BoolValue) Type() Type { return Boolean }

func (v BoolValue) Equal(other Value) bool {
	o, ok := other.(BoolValue)
	return ok && v == o
}

func (v BoolValue) String() string { return strconv.FormatBool(bool(v)) }

type StringValue string

func (v StringValue) Type() Type { return String }

func (v StringValue) Equal(other Value) bool {
	o, ok := other.(StringValue)
	return ok && v == o
}

func (v StringValue) String() string { return strconv.Quote(string(v)) }
