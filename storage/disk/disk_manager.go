package disk

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/jobala/tuplestore/types"
)

const (
	blockFilePrefix = "block_"
	blockFileSuffix = ".txt"
	metaFileName    = "directory.meta"
)

// NewManager returns a manager storing the blocks of one table under
// root/<table parts...>/.
func NewManager(root string, table types.Identifier) *Manager {
	return &Manager{
		root:  root,
		table: table,
	}
}

func (m *Manager) Table() types.Identifier {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.table
}

func (m *Manager) TableDir() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tableDir(m.table)
}

func (m *Manager) BlockPath(block int) string {
	return filepath.Join(m.TableDir(), fmt.Sprintf("%s%d%s", blockFilePrefix, block, blockFileSuffix))
}

func (m *Manager) tableDir(table types.Identifier) string {
	return filepath.Join(append([]string{m.root}, table.Parts()...)...)
}

// createBlock makes sure the block file exists. An existing file is reused as is.
func (m *Manager) createBlock(block int) error {
	path := m.BlockPath(block)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(file.Close())
}

func (m *Manager) readBlock(block int) ([]byte, error) {
	data, err := os.ReadFile(m.BlockPath(block))
	if err != nil {
		return nil, errors.Wrapf(err, "error reading block %d", block)
	}

	return data, nil
}

// writeBlock replaces the whole content of the block file.
func (m *Manager) writeBlock(block int, data []byte) error {
	path := m.BlockPath(block)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "error opening block %d", block)
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return errors.Wrapf(err, "error writing block %d", block)
	}

	return errors.WithStack(file.Close())
}

func (m *Manager) BlockExists(block int) bool {
	_, err := os.Stat(m.BlockPath(block))
	return err == nil
}

// ReadMeta returns the directory metadata. The boolean is false if the table has
// never been persisted.
func (m *Manager) ReadMeta() ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(m.TableDir(), metaFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	return data, true, nil
}

// WriteMeta replaces the metadata file through a rename so readers never see a
// partially written file.
func (m *Manager) WriteMeta(data []byte) error {
	dir := m.TableDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}

	tmp := filepath.Join(dir, metaFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(os.Rename(tmp, filepath.Join(dir, metaFileName)))
}

// Rename moves the table directory. Callers must make sure no block I/O is in
// flight.
func (m *Manager) Rename(table types.Identifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldDir := m.tableDir(m.table)
	newDir := m.tableDir(table)
	if oldDir == newDir {
		m.table = table
		return nil
	}

	if _, err := os.Stat(newDir); err == nil {
		return errors.Errorf("cannot rename %s to %s: target exists", m.table, table)
	}

	if _, err := os.Stat(oldDir); err == nil {
		if err := os.MkdirAll(filepath.Dir(newDir), 0o755); err != nil {
			return errors.WithStack(err)
		}
		if err := os.Rename(oldDir, newDir); err != nil {
			return errors.WithStack(err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return errors.WithStack(err)
	}

	m.table = table
	return nil
}

// Drop deletes every file of the table.
func (m *Manager) Drop() error {
	return errors.WithStack(os.RemoveAll(m.TableDir()))
}

type Manager struct {
	root string

	mu    sync.RWMutex
	table types.Identifier
}
