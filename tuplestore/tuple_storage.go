package tuplestore

import (
	"log/slog"
	"math/big"

	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/index"
	"github.com/jobala/tuplestore/storage/disk"
	"github.com/jobala/tuplestore/types"
	"github.com/jobala/tuplestore/util"
)

// Open creates the storage of a relation, or reopens it if its directory already
// exists under cfg.Root.
func Open(cfg Config, id types.Identifier, schema types.Schema, pk types.PrimaryKeyDefinition) (*TupleStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, errors.New("table identifier must not be empty")
	}
	if err := pk.Validate(schema); err != nil {
		return nil, err
	}

	logger := cfg.logger()
	manager := disk.NewManager(cfg.Root, id)
	ds := disk.NewScheduler(manager, cfg.DiskWorkers)

	dir, err := index.Open(ds, schema.TypeList(), index.Options{
		Capacity: cfg.BucketCapacity,
		Logger:   logger,
	})
	if err != nil {
		ds.Close()
		return nil, errors.Wrapf(err, "error opening table %s", id)
	}

	ts := &TupleStore{
		schema:  schema,
		pk:      pk,
		manager: manager,
		dir:     dir,
		logger:  logger,
	}

	logger.Info("table opened",
		"table", id.String(),
		"pages", len(dir.Stats().Pages),
		"tuples", ts.Len(),
		"globalDepth", dir.GlobalDepth(),
	)

	return ts, nil
}

// Insert stores the tuple, replacing the tuple with the same primary key if
// there is one. The replaced tuple is returned.
func (ts *TupleStore) Insert(tuple types.Tuple) (types.Tuple, bool, error) {
	if err := ts.checkTuple(tuple); err != nil {
		return nil, false, err
	}

	prev, replaced, err := ts.dir.Insert(ts.pk.Project(tuple).Hash(), tuple.Clone())
	if err != nil {
		return nil, false, err
	}

	return prev, replaced, nil
}

// InsertUnique stores the tuple unless a tuple with the same primary key exists,
// in which case it fails with util.ErrPrimaryKeyPresent.
func (ts *TupleStore) InsertUnique(tuple types.Tuple) error {
	if err := ts.checkTuple(tuple); err != nil {
		return err
	}

	_, inserted, err := ts.dir.InsertIfAbsent(ts.pk.Project(tuple).Hash(), tuple.Clone())
	if err != nil {
		return err
	}
	if !inserted {
		return errors.WithStack(util.ErrPrimaryKeyPresent)
	}

	return nil
}

func (ts *TupleStore) Remove(key types.PrimaryKey) (types.Tuple, error) {
	if err := ts.checkKey(key); err != nil {
		return nil, err
	}

	prev, removed, err := ts.dir.Remove(ts.hash(key))
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, errors.WithStack(util.ErrNotFound)
	}

	return prev, nil
}

func (ts *TupleStore) FindByPrimary(key types.PrimaryKey) (types.Tuple, error) {
	if err := ts.checkKey(key); err != nil {
		return nil, err
	}

	tuple, found, err := ts.dir.Find(ts.hash(key))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.WithStack(util.ErrNotFound)
	}

	return tuple, nil
}

// AllTuples starts a new full scan. Every call returns a fresh iterator.
func (ts *TupleStore) AllTuples() *TupleIterator {
	return &TupleIterator{it: ts.dir.Scan()}
}

// Len is the number of stored tuples, kept by the directory as pages change.
func (ts *TupleStore) Len() int {
	return ts.dir.Len()
}

func (ts *TupleStore) IsEmpty() bool {
	return ts.Len() == 0
}

func (ts *TupleStore) Identifier() types.Identifier {
	return ts.manager.Table()
}

func (ts *TupleStore) Schema() types.Schema {
	return ts.schema
}

func (ts *TupleStore) PrimaryKey() types.PrimaryKeyDefinition {
	return ts.pk
}

// Rename changes the identifier of the table and moves its files accordingly.
func (ts *TupleStore) Rename(id types.Identifier) error {
	if id.IsZero() {
		return errors.New("table identifier must not be empty")
	}
	return ts.dir.Rename(id)
}

func (ts *TupleStore) Stats() index.Stats {
	return ts.dir.Stats()
}

// Close persists the directory and stops the disk workers.
func (ts *TupleStore) Close() error {
	if err := ts.dir.Close(); err != nil {
		return err
	}
	ts.logger.Info("table closed", "table", ts.Identifier().String(), "tuples", ts.Len())
	return nil
}

// Drop deletes the table and all of its files.
func (ts *TupleStore) Drop() error {
	return ts.dir.Drop()
}

func (ts *TupleStore) checkTuple(tuple types.Tuple) error {
	if positions := ts.schema.Check(tuple); len(positions) > 0 {
		return errors.WithStack(&util.IncorrectTypesError{Positions: positions})
	}
	return nil
}

// hash hashes the key values with the seeds of this table's key definition,
// whichever definition built the key.
func (ts *TupleStore) hash(key types.PrimaryKey) *big.Int {
	return ts.pk.Key(key.Values()...).Hash()
}

func (ts *TupleStore) checkKey(key types.PrimaryKey) error {
	if positions := ts.pk.CheckKey(ts.schema, key); len(positions) > 0 {
		return errors.WithStack(&util.IncorrectTypesError{Positions: positions})
	}
	return nil
}

// TupleStore persists the tuples of one relation in a directory of pages indexed
// by the hash of their primary key.
type TupleStore struct {
	schema  types.Schema
	pk      types.PrimaryKeyDefinition
	manager *disk.Manager
	dir     *index.Directory
	logger  *slog.Logger
}
