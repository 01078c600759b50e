package types

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSerialization(t *testing.T) {
	typeList := []Type{Integer, String, Boolean, Float}

	t.Run("serialized tuples can be deserialized", func(t *testing.T) {
		tuples := []Tuple{
			NewTuple(IntValue(1), StringValue("john"), BoolValue(true), FloatValue(1.5)),
			NewTuple(IntValue(-42), StringValue(""), BoolValue(false), FloatValue(0)),
			NewTuple(IntValue(math.MaxInt64), StringValue("a,b:\"c\"\nnew line"), BoolValue(true), FloatValue(math.SmallestNonzeroFloat64)),
			NewTuple(IntValue(math.MinInt64), StringValue("ünïcode ✓"), BoolValue(false), FloatValue(-1e300)),
		}

		for _, tuple := range tuples {
			text := Serialize(tuple)
			assert.NotContains(t, text, "\n")

			res, err := Deserialize(text, typeList)
			assert.NoError(t, err)
			assert.True(t, tuple.Equal(res), "%v != %v", tuple, res)
		}
	})

	t.Run("serialized format is comma separated", func(t *testing.T) {
		text := Serialize(NewTuple(IntValue(7), StringValue("x"), BoolValue(true), FloatValue(2.25)))
		assert.Equal(t, `7,"x",true,2.25`, text)
	})

	t.Run("arity mismatch is a parse error", func(t *testing.T) {
		_, err := Deserialize(`1,"x"`, typeList)

		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
	})

	t.Run("wrong literal is a parse error", func(t *testing.T) {
		_, err := Deserialize(`one,"x",true,1`, typeList)

		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
	})

	t.Run("unterminated string is a parse error", func(t *testing.T) {
		_, err := Deserialize(`1,"x,true,1`, typeList)
		assert.Error(t, err)
	})

	t.Run("unquoted string is rejected", func(t *testing.T) {
		_, err := Deserialize(`1,x,true,1`, typeList)
		assert.Error(t, err)
	})

	t.Run("empty trailing value is reported", func(t *testing.T) {
		_, err := Deserialize(`1,"x",true,`, typeList)
		assert.Error(t, err)
	})
}
