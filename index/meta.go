package index

import (
	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/buffer"
	"github.com/jobala/tuplestore/util"
)

// directoryMeta is the persisted shape of the directory, stored with msgpack
// next to the block files.
type directoryMeta struct {
	GlobalDepth uint
	NextBlock   int
	Slots       []slotMeta
}

type slotMeta struct {
	Block      int
	LocalDepth uint
}

func encodeMeta(t *slotTable, nextBlock int) ([]byte, error) {
	m := directoryMeta{
		GlobalDepth: t.depth,
		NextBlock:   nextBlock,
		Slots:       make([]slotMeta, len(t.slots)),
	}
	for i, s := range t.slots {
		m.Slots[i] = slotMeta{Block: s.page.Block(), LocalDepth: s.depth}
	}

	return util.ToByteSlice(m)
}

// decodeMeta rebuilds a slot table, registering every referenced block in the pool.
func decodeMeta(data []byte, pool *buffer.Pool) (*slotTable, error) {
	m, err := util.ToStruct[directoryMeta](data)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding directory metadata")
	}

	if m.GlobalDepth > maxGlobalDepth {
		return nil, errors.Errorf("directory depth %d exceeds maximum %d", m.GlobalDepth, maxGlobalDepth)
	}

	t := &slotTable{depth: m.GlobalDepth, slots: make([]slot, len(m.Slots))}
	for i, s := range m.Slots {
		if s.Block < 0 {
			return nil, errors.Errorf("slot %d references invalid block %d", i, s.Block)
		}
		page, err := pool.OpenPage(s.Block)
		if err != nil {
			return nil, err
		}
		t.slots[i] = slot{page: page, depth: s.LocalDepth}
	}
	pool.SetNextBlock(m.NextBlock)

	if err := t.check(); err != nil {
		return nil, errors.Wrap(err, "corrupt directory metadata")
	}

	return t, nil
}
