// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package archive

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"

	"whoisreport/pkg/model"
)

// Run describes one finished pass over an input file
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Input      string
	Output     string
	Processed  int
	Successful int
	Providers  []string
}

// NewRun creates run metadata from the stats of a finished pass
func NewRun(stats *model.RunStats, input, output string, providers []string) *Run {
	return &Run{
		ID:         uuid.NewString(),
		StartedAt:  stats.StartedAt,
		FinishedAt: stats.FinishedAt,
		Input:      input,
		Output:     output,
		Processed:  stats.Processed,
		Successful: stats.Successful,
		Providers:  providers,
	}
}

// Runs lists every archived run, newest first
func (d *DB) Runs() ([]*Run, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, model.ErrArchiveClosed
	}

	iter := d.db.NewIterator(util.BytesPrefix([]byte(PrefixRun)), nil)
	defer iter.Release()

	var runs []*Run
	for iter.Next() {
		id := string(iter.Key()[len(PrefixRun):])
		run, err := decodeRun(id, iter.Value())
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration failed: %w", err)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// storedRun is the msgpack layout of a run; the ID lives in the key
type storedRun struct {
	StartedAt  int64 // Unix nanoseconds
	FinishedAt int64
	Input      string
	Output     string
	Processed  int
	Successful int
	Providers  []string
}

func encodeRun(run *Run) ([]byte, error) {
	data, err := msgpack.Marshal(storedRun{
		StartedAt:  run.StartedAt.UnixNano(),
		FinishedAt: run.FinishedAt.UnixNano(),
		Input:      run.Input,
		Output:     run.Output,
		Processed:  run.Processed,
		Successful: run.Successful,
		Providers:  run.Providers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run: %w", err)
	}
	return data, nil
}

func decodeRun(id string, data []byte) (*Run, error) {
	var stored storedRun
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return &Run{
		ID:         id,
		StartedAt:  time.Unix(0, stored.StartedAt),
		FinishedAt: time.Unix(0, stored.FinishedAt),
		Input:      stored.Input,
		Output:     stored.Output,
		Processed:  stored.Processed,
		Successful: stored.Successful,
		Providers:  stored.Providers,
	}, nil
}

func encodeRecord(rec *model.Record) ([]byte, error) {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*model.Record, error) {
	var rec model.Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}
