package tuplestore

import (
	"iter"

	"github.com/jobala/tuplestore/index"
	"github.com/jobala/tuplestore/types"
)

// Next returns the next tuple, or false once the scan is exhausted.
func (ti *TupleIterator) Next() (types.Tuple, bool, error) {
	e, ok, err := ti.it.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	return e.Tuple, true, nil
}

// Tuples returns the tuples of a fresh scan as a sequence. The sequence stops
// after yielding the first error.
func (ts *TupleStore) Tuples() iter.Seq2[types.Tuple, error] {
	return func(yield func(types.Tuple, error) bool) {
		it := ts.AllTuples()
		for {
			tuple, ok, err := it.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(tuple, nil) {
				return
			}
		}
	}
}

type TupleIterator struct {
	it *index.Iterator
}
