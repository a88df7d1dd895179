// Package fillstore persists executed fills in pebble and tracks their
// publication state, so fills survive a restart and the broadcaster can
// resume exactly where it stopped.
package fillstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

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

// Record is one durable fill with its outbox state. Payload is the
// serialized fill as it will appear on the wire; the store does not
// interpret it.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64 // unix nanos of the last publish attempt
	Payload     []byte
}

// value encoding: [state:1][retries:4][lastAttempt:8][payload...]
const headerLen = 1 + 4 + 8

func encodeValue(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerLen:], r.Payload)
	return buf
}

func decodeValue(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, errors.New("fill record too short")
	}
	payload := make([]byte, len(b)-headerLen)
	copy(payload, b[headerLen:])
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

// Store is a pebble-backed fill log keyed by fill sequence number.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false,
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append records a freshly executed fill in state NEW.
func (s *Store) Append(seq uint64, payload []byte) error {
	rec := Record{Seq: seq, State: StateNew, Payload: payload}
	return s.db.Set(keyFor(seq), encodeValue(rec), pebble.Sync)
}

// MarkSent flags a record as handed to the producer.
func (s *Store) MarkSent(seq uint64) error {
	return s.transition(seq, StateSent, 0)
}

// MarkAcked flags a record as confirmed by the broker.
func (s *Store) MarkAcked(seq uint64) error {
	return s.transition(seq, StateAcked, 0)
}

// MarkFailed flags a publish failure and counts the attempt.
func (s *Store) MarkFailed(seq uint64) error {
	return s.transition(seq, StateFailed, 1)
}

func (s *Store) transition(seq uint64, state State, retryDelta uint32) error {
	rec, err := s.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries += retryDelta
	rec.LastAttempt = time.Now().UnixNano()
	return s.db.Set(keyFor(seq), encodeValue(rec), pebble.Sync)
}

// Delete removes an acked record during cleanup.
func (s *Store) Delete(seq uint64) error {
	return s.db.Delete(keyFor(seq), pebble.Sync)
}

func (s *Store) Get(seq uint64) (Record, error) {
	val, closer, err := s.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decodeValue(seq, val)
}

// ScanByState visits every record in the given state in sequence order.
func (s *Store) ScanByState(state State, fn func(rec Record) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeValue(seq, iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

const keyPrefix = "fill/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}
