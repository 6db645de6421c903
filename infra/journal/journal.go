// Package journal is the outbox for eviction events. Every eviction is
// recorded here before the broadcaster publishes it, so an event that
// was evicted but never acknowledged is retried after a restart.
//
// The journal never stores the list itself.
package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const headerLen = 1 + 4 + 8

var ErrCorrupt = errors.New("journal: corrupt record")

// binary encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerLen:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, errors.Wrapf(ErrCorrupt, "seq %d: %d bytes", seq, len(b))
	}
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     bytes.Clone(b[headerLen:]),
	}, nil
}

// -------------------- Journal --------------------

type Journal struct {
	db *pebble.DB
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %q", dir)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records a NEW event.
func (j *Journal) Append(seq uint64, payload []byte) error {
	return j.db.Set(keyFor(seq), encodeRecord(Record{State: StateNew, Payload: payload}), pebble.Sync)
}

// UpdateState moves a record to state after a send attempt, keeping its
// payload.
func (j *Journal) UpdateState(seq uint64, state State, retries uint32) error {
	rec, err := j.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return j.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Delete removes an ACKED record.
func (j *Journal) Delete(seq uint64) error {
	return j.db.Delete(keyFor(seq), pebble.Sync)
}

// Get returns the record for seq. A missing record reports
// pebble.ErrNotFound.
func (j *Journal) Get(seq uint64) (Record, error) {
	val, closer, err := j.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

// LastSeq returns the highest sequence number present, or 0.
func (j *Journal) LastSeq() (uint64, error) {
	iter, err := j.newIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// -------------------- Scan --------------------

// ScanByState iterates records in the given state in sequence order.
func (j *Journal) ScanByState(state State, fn func(Record) error) error {
	iter, err := j.newIter()
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		val := iter.Value()
		if len(val) == 0 || State(val[0]) != state {
			continue
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, val)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

const prefix = "evict/"

func (j *Journal) newIter() (*pebble.Iterator, error) {
	return j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte("evict0"), // '0' sorts right after '/'
	})
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	seq, err := strconv.ParseUint(string(bytes.TrimPrefix(b, []byte(prefix))), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrCorrupt, "key %q", b)
	}
	return seq, nil
}
