package types

import (
	"strings"

	"github.com/pkg/errors"
)

const identifierSeparator = "::"

// Identifier is a hierarchical name such as db::schema::table. Each part becomes
// one directory level on disk.
type Identifier struct {
	parts []string
}

func NewIdentifier(parts ...string) (Identifier, error) {
	if len(parts) == 0 {
		return Identifier{}, errors.New("identifier must have at least one part")
	}

	for _, part := range parts {
		if err := validatePart(part); err != nil {
			return Identifier{}, err
		}
	}

	return Identifier{parts: append([]string(nil), parts...)}, nil
}

// MustIdentifier is NewIdentifier for names known to be valid.
func MustIdentifier(parts ...string) Identifier {
	id, err := NewIdentifier(parts...)
	if err != nil {
		panic(err)
	}
	return id
}

func ParseIdentifier(s string) (Identifier, error) {
	return NewIdentifier(strings.Split(s, identifierSeparator)...)
}

func validatePart(part string) error {
	switch {
	case part == "":
		return errors.New("identifier part cannot be empty")
	case part == "." || part == "..":
		return errors.Errorf("identifier part %q is reserved", part)
	case strings.ContainsAny(part, `/\:`):
		return errors.Errorf("identifier part %q contains a path or name separator", part)
	}
	return nil
}

func (id Identifier) Parts() []string {
	return append([]string(nil), id.parts...)
}

func (id Identifier) Child(name string) (Identifier, error) {
	if err := validatePart(name); err != nil {
		return Identifier{}, err
	}

	parts := append(id.Parts(), name)
	return Identifier{parts: parts}, nil
}

func (id Identifier) IsZero() bool {
	return len(id.parts) == 0
}

func (id Identifier) Equal(other Identifier) bool {
	if len(id.parts) != len(other.parts) {
		return false
	}
	for i := range id.parts {
		if id.parts[i] != other.parts[i] {
			return false
		}
	}
	return true
}

func (id Identifier) String() string {
	return strings.Join(id.parts, identifierSeparator)
}
