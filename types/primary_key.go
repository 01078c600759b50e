package types

import (
	"fmt"
	"math/big"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// PrimaryKeyDefinition lists the tuple positions forming the primary key and the
// seeds used to hash it.
type PrimaryKeyDefinition struct {
	positions []int
	seeds     [2]uint64
}

func NewPrimaryKeyDefinition(positions ...int) (PrimaryKeyDefinition, error) {
	if len(positions) == 0 {
		return PrimaryKeyDefinition{}, errors.New("primary key must have at least one position")
	}

	seen := make(map[int]struct{}, len(positions))
	for _, pos := range positions {
		if pos < 0 {
			return PrimaryKeyDefinition{}, errors.Errorf("invalid primary key position %d", pos)
		}
		if _, ok := seen[pos]; ok {
			return PrimaryKeyDefinition{}, errors.Errorf("duplicate primary key position %d", pos)
		}
		seen[pos] = struct{}{}
	}

	def := PrimaryKeyDefinition{positions: append([]int(nil), positions...)}
	for i := range def.seeds {
		def.seeds[i] = xxhash.Sum64String(fmt.Sprintf("pk:%d:%v", i, def.positions))
	}

	return def, nil
}

func (d PrimaryKeyDefinition) Positions() []int {
	return append([]int(nil), d.positions...)
}

// Validate checks that every key position exists in the schema.
func (d PrimaryKeyDefinition) Validate(s Schema) error {
	if len(d.positions) == 0 {
		return errors.New("primary key definition is empty")
	}
	for _, pos := range d.positions {
		if pos >= s.Len() {
			return errors.Errorf("primary key position %d out of range for %d attributes", pos, s.Len())
		}
	}
	return nil
}

// KeyTypes returns the declared types of the key attributes, in key order.
func (d PrimaryKeyDefinition) KeyTypes(s Schema) []Type {
	typeList := s.TypeList()
	res := make([]Type, len(d.positions))
	for i, pos := range d.positions {
		res[i] = typeList[pos]
	}
	return res
}

// CheckKey returns the key positions whose values do not match the key types.
func (d PrimaryKeyDefinition) CheckKey(s Schema, key PrimaryKey) []int {
	return checkTypes(d.KeyTypes(s), Tuple(key.values))
}

// Project extracts the primary key of a well typed tuple.
func (d PrimaryKeyDefinition) Project(t Tuple) PrimaryKey {
	values := make([]Value, len(d.positions))
	for i, pos := range d.positions {
		values[i] = t[pos]
	}
	return PrimaryKey{values: values, seeds: d.seeds}
}

// Key builds a primary key from values given in key order.
func (d PrimaryKeyDefinition) Key(values ...Value) PrimaryKey {
	return PrimaryKey{values: append([]Value(nil), values...), seeds: d.seeds}
}

type PrimaryKey struct {
	values []Value
	seeds  [2]uint64
}

func (k PrimaryKey) Values() []Value {
	return append([]Value(nil), k.values...)
}

// Hash returns the unsigned 128-bit hash of the key. The same values and seeds
// always produce the same hash.
func (k PrimaryKey) Hash() *big.Int {
	var sums [2]uint64
	for i, seed := range k.seeds {
		d := xxhash.NewWithSeed(seed)
		for _, v := range k.values {
			if v == nil {
				_, _ = d.Write([]byte{0xff, 0})
				continue
			}
			_, _ = d.Write([]byte{byte(v.Type()), 0})
			_, _ = d.WriteString(v.String())
			_, _ = d.Write([]byte{0})
		}
		sums[i] = d.Sum64()
	}

	res := new(big.Int).SetUint64(sums[0])
	res.Lsh(res, 64)
	return res.Or(res, new(big.Int).SetUint64(sums[1]))
}
