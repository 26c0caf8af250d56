// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package archive

import (
	"encoding/binary"
	"fmt"
)

const (
	// Key prefixes for LevelDB
	PrefixRun    = "run:"
	PrefixRecord = "rec:"
)

// RunKey creates the key holding a run's metadata
// Format: "run:" + run ID
func RunKey(id string) []byte {
	return []byte(PrefixRun + id)
}

// RecordPrefix returns the prefix shared by every record of a run
func RecordPrefix(id string) []byte {
	return []byte(PrefixRecord + id + ":")
}

// RecordKey creates the key for the seq-th record of a run
// Format: "rec:" + run ID + ":" + 4-byte big-endian sequence number
func RecordKey(id string, seq uint32) []byte {
	prefix := RecordPrefix(id)
	key := make([]byte, len(prefix)+4)
	copy(key, prefix)
	binary.BigEndian.PutUint32(key[len(prefix):], seq)
	return key
}

// DecodeRecordKey extracts the sequence number from a record key of run id
func DecodeRecordKey(id string, key []byte) (uint32, error) {
	prefix := RecordPrefix(id)
	if len(key) != len(prefix)+4 || string(key[:len(prefix)]) != string(prefix) {
		return 0, fmt.Errorf("invalid record key for run %s", id)
	}
	return binary.BigEndian.Uint32(key[len(prefix):]), nil
}
