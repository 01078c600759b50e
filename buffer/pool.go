package buffer

import (
	"slices"
	"sync"

	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/types"
)

func NewPool(typeList []types.Type, io BlockIO) *Pool {
	return &Pool{
		typeList: typeList,
		io:       io,
		pages:    map[int]*Page{},
	}
}

// NewPage allocates the next block number and creates the block file.
func (b *Pool) NewPage() (*Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	block := b.nextBlock
	if err := b.io.CreateBlock(block); err != nil {
		return nil, errors.Wrapf(err, "error creating block %d", block)
	}
	b.nextBlock++

	p := NewPage(block, b.typeList, b.io)
	b.pages[block] = p
	return p, nil
}

// OpenPage registers a block that may already exist on disk. Its file is reused
// if present.
func (b *Pool) OpenPage(block int) (*Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.pages[block]; ok {
		return p, nil
	}

	if err := b.io.CreateBlock(block); err != nil {
		return nil, errors.Wrapf(err, "error opening block %d", block)
	}

	p := NewPage(block, b.typeList, b.io)
	b.pages[block] = p
	if block >= b.nextBlock {
		b.nextBlock = block + 1
	}
	return p, nil
}

// Pages returns every page ordered by block number.
func (b *Pool) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := make([]*Page, 0, len(b.pages))
	for _, p := range b.pages {
		res = append(res, p)
	}
	slices.SortFunc(res, func(a, c *Page) int { return a.block - c.block })
	return res
}

func (b *Pool) NextBlock() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.nextBlock
}

// SetNextBlock moves the allocation cursor forward. It never moves backwards.
func (b *Pool) SetNextBlock(next int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if next > b.nextBlock {
		b.nextBlock = next
	}
}

// Len is the total number of entries across all pages.
func (b *Pool) Len() int {
	total := 0
	for _, p := range b.Pages() {
		total += p.Len()
	}
	return total
}

// Pool owns every page of one table and hands out block numbers.
type Pool struct {
	typeList []types.Type
	io       BlockIO

	mu        sync.Mutex
	pages     map[int]*Page
	nextBlock int
}
