// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package archive

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"whoisreport/pkg/model"
)

// DB wraps a LevelDB instance holding finished runs
type DB struct {
	db     *leveldb.DB
	mu     sync.RWMutex
	path   string
	closed bool
}

// Open opens or creates a LevelDB archive at the specified path
func Open(path string) (*DB, error) {
	opts := &opt.Options{
		// Use snappy compression for values
		Compression: opt.SnappyCompression,
	}

	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	return &DB{
		db:   db,
		path: path,
	}, nil
}

// Close closes the archive
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return model.ErrArchiveClosed
	}

	d.closed = true
	return d.db.Close()
}

// Path returns the archive path
func (d *DB) Path() string {
	return d.path
}

// SaveRun stores a run and its records atomically. Records keep their order.
func (d *DB) SaveRun(run *Run, records []*model.Record) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return model.ErrArchiveClosed
	}

	value, err := encodeRun(run)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(RunKey(run.ID), value)
	for i, rec := range records {
		data, err := encodeRecord(rec)
		if err != nil {
			return fmt.Errorf("record %d (%s): %w", i, rec.IP, err)
		}
		batch.Put(RecordKey(run.ID, uint32(i)), data)
	}

	if err := d.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun retrieves a run's metadata by ID
func (d *DB) GetRun(id string) (*Run, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, model.ErrArchiveClosed
	}

	value, err := d.db.Get(RunKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, fmt.Errorf("%s: %w", id, model.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return decodeRun(id, value)
}

// Records returns the records of a run in the order they were saved
func (d *DB) Records(id string) ([]*model.Record, error) {
	if _, err := d.GetRun(id); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, model.ErrArchiveClosed
	}

	iter := d.db.NewIterator(util.BytesPrefix(RecordPrefix(id)), nil)
	defer iter.Release()

	var records []*model.Record
	for iter.Next() {
		if _, err := DecodeRecordKey(id, iter.Key()); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration failed: %w", err)
	}
	return records, nil
}

// DeleteRun removes a run and all of its records
func (d *DB) DeleteRun(id string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return model.ErrArchiveClosed
	}

	ok, err := d.db.Has(RunKey(id), nil)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", id, model.ErrRunNotFound)
	}

	batch := new(leveldb.Batch)
	batch.Delete(RunKey(id))

	iter := d.db.NewIterator(util.BytesPrefix(RecordPrefix(id)), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iteration failed: %w", err)
	}

	return d.db.Write(batch, nil)
}
