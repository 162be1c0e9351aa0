// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package oplog is the durable, sequence-numbered per-tenant operation log
// described in Section 4.2. Every mutation accepted by a tenant (document
// upsert, document delete, settings change) is appended here before it is
// applied to the inverted index, giving the replication manager a cursor it
// can catch peers up from and giving the tenant a crash-recovery source of
// truth. One Log wraps one BadgerDB instance rooted at <tenant>/oplog/.
package oplog

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/gridlhq/flapjack/internal/ferror"
	"github.com/gridlhq/flapjack/internal/logging"
)

// Op identifies the kind of mutation an Entry records.
type Op string

const (
	OpUpsertDocument Op = "upsert_document"
	OpDeleteDocument Op = "delete_document"
	OpUpdateSettings Op = "update_settings"
	OpClearIndex     Op = "clear_index"
)

// Entry is one record in the log. CRC32 guards the Payload against torn
// writes surviving a crash; RecoverTail uses it to find where the tail
// became unreadable and truncate back to the last good entry.
type Entry struct {
	Seq       uint64          `json:"seq"`
	Op        Op              `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	CRC32     uint32          `json:"crc32"`
}

// UnmarshalPayload deserializes the entry's payload into v.
func (e *Entry) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

func (e *Entry) verify() bool {
	return crc32.ChecksumIEEE(e.Payload) == e.CRC32
}

const keyPrefix = "e:"

func seqKey(seq uint64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], seq)
	return key
}

// Log is a durable, ordered, append-only sequence of Entry records for one
// tenant, backed by BadgerDB.
type Log struct {
	db      *badger.DB
	path    string
	lastSeq atomic.Uint64
	mu      sync.Mutex
	closed  bool
}

// Open opens (or creates) the oplog rooted at path.
func Open(path string) (*Log, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open oplog at %s: %w", path, err)
	}
	l := &Log{db: db, path: path}
	if err := l.loadLastSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := l.RecoverTail(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) loadLastSeq() error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append([]byte(keyPrefix), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		it.Seek(seekKey)
		if !it.ValidForPrefix([]byte(keyPrefix)) {
			return nil
		}
		key := it.Item().KeyCopy(nil)
		l.lastSeq.Store(binary.BigEndian.Uint64(key[len(keyPrefix):]))
		return nil
	})
}

// RecoverTail walks the log from its newest entry backward, verifying each
// entry's checksum, and truncates any unreadable or checksum-mismatched
// tail left by a crash mid-write. It stops at the first good entry.
func (l *Log) RecoverTail() error {
	var badSeqs []uint64

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append([]byte(keyPrefix), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seekKey); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			item := it.Item()
			var entry Entry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil || !entry.verify() {
				key := item.KeyCopy(nil)
				badSeqs = append(badSeqs, binary.BigEndian.Uint64(key[len(keyPrefix):]))
				continue
			}
			// First good entry found walking backward: everything newer
			// that we collected is a corrupted tail; everything older is
			// untouched and doesn't need inspection.
			break
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan oplog tail: %w", err)
	}
	if len(badSeqs) == 0 {
		return nil
	}

	logging.Warn().Int("count", len(badSeqs)).Str("path", l.path).Msg("oplog: truncating corrupted tail")

	return l.db.Update(func(txn *badger.Txn) error {
		for _, seq := range badSeqs {
			if err := txn.Delete(seqKey(seq)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Append atomically assigns the next sequence number and persists a new
// Entry within one BadgerDB transaction.
func (l *Log) Append(ctx context.Context, op Op, payload []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ferror.New(ferror.Io, "oplog is closed")
	}

	seq := l.lastSeq.Load() + 1
	entry := Entry{
		Seq:       seq,
		Op:        op,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
		CRC32:     crc32.ChecksumIEEE(payload),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return 0, fmt.Errorf("marshal oplog entry: %w", err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seqKey(seq), data)
	})
	if err != nil {
		return 0, fmt.Errorf("write oplog entry: %w", err)
	}

	l.lastSeq.Store(seq)
	return seq, nil
}

// ReadSince returns every entry with sequence number greater than seq, in
// ascending order, for the replication catch-up path.
func (l *Log) ReadSince(ctx context.Context, seq uint64) ([]*Entry, error) {
	var entries []*Entry

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seqKey(seq + 1)); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			item := it.Item()
			var entry Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("unmarshal oplog entry: %w", err)
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// LastSeq returns the most recently assigned sequence number, or 0 if the
// log is empty.
func (l *Log) LastSeq() uint64 {
	return l.lastSeq.Load()
}

// TruncateThrough removes every entry with sequence number <= seq.
func (l *Log) TruncateThrough(ctx context.Context, seq uint64) error {
	return l.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		var toDelete [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if binary.BigEndian.Uint64(key[len(keyPrefix):]) > seq {
				break
			}
			toDelete = append(toDelete, key)
		}
		for _, key := range toDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close shuts down the underlying BadgerDB.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}
