package index

import (
	"github.com/jobala/tuplestore/buffer"
)

// BatchInsert inserts every entry, stopping at the first error.
func (d *Directory) BatchInsert(entries []buffer.Entry) error {
	for _, e := range entries {
		if _, _, err := d.Insert(e.Hash, e.Tuple); err != nil {
			return err
		}
	}

	return nil
}

// Stats describes the shape of the directory at the time of the call.
func (d *Directory) Stats() Stats {
	tbl := d.table.Load()

	stats := Stats{GlobalDepth: tbl.depth}
	for _, page := range tbl.pages() {
		depth, _ := tbl.localDepth(page)
		stats.Pages = append(stats.Pages, PageStats{
			Block:      page.Block(),
			LocalDepth: depth,
			Len:        page.Len(),
			Slots:      tbl.references(page),
		})
		stats.Tuples += page.Len()
	}

	return stats
}

type Stats struct {
	GlobalDepth uint
	Pages       []PageStats
	Tuples      int
}

type PageStats struct {
	Block      int
	LocalDepth uint
	Len        int
	Slots      int
}
