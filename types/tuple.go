package types

// Tuple is an ordered list of attribute values.
type Tuple []Value

func NewTuple(values ...Value) Tuple {
	return Tuple(values)
}

func (t Tuple) Equal(other Tuple) bool {
	if len(t) != len(other) {
		return false
	}

	for i := range t {
		if t[i] == nil || other[i] == nil {
			if t[i] != other[i] {
				return false
			}
			continue
		}
		if !t[i].Equal(other[i]) {
			return false
		}
	}

	return true
}

func (t Tuple) Clone() Tuple {
	if t == nil {
		return nil
	}

	res := make(Tuple, len(t))
	copy(res, t)
	return res
}

func (t Tuple) Types() []Type {
	res := make([]Type, len(t))
	for i, v := range t {
		if v == nil {
			res[i] = -1
			continue
		}
		res[i] = v.Type()
	}

	return res
}

func (t Tuple) String() string {
	return Serialize(t)
}
