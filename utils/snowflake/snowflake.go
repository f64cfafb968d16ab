// Package snowflake generates 63-bit time-ordered message IDs:
// 41 bits of milliseconds since a custom epoch, then worker bits, then a
// per-millisecond sequence. IDs from one generator are strictly increasing,
// which is what the session tie-break (message ID descending) relies on.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	// Epoch is 2024-01-01T00:00:00Z in milliseconds.
	Epoch int64 = 1704067200000

	workerIDBits uint8 = 10
	sequenceBits uint8 = 12

	maxWorkerID  int64 = -1 ^ (-1 << workerIDBits)
	sequenceMask int64 = -1 ^ (-1 << sequenceBits)

	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

var (
	ErrInvalidWorkerID     = errors.New("worker ID exceeds maximum value")
	ErrClockMovedBackwards = errors.New("clock moved backwards")
)

// Generator issues snowflake IDs. Safe for concurrent use.
type Generator struct {
	mu sync.Mutex

	workerID      int64
	sequence      int64
	lastTimestamp int64

	// now is injectable for tests; nil means time.Now.
	now func() time.Time
}

func NewGenerator(workerID int64) (*Generator, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, ErrInvalidWorkerID
	}
	return &Generator{workerID: workerID, lastTimestamp: -1}, nil
}

func (g *Generator) millis() int64 {
	if g.now != nil {
		return g.now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

// Next returns the next ID. Within one millisecond the sequence increments;
// on sequence exhaustion it spins to the next millisecond.
func (g *Generator) Next() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.millis()
	if ts < g.lastTimestamp {
		return 0, ErrClockMovedBackwards
	}

	if ts == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			for ts <= g.lastTimestamp {
				ts = g.millis()
			}
		}
	} else {
		g.sequence = 0
	}
	g.lastTimestamp = ts

	id := (ts-Epoch)<<timestampShift | g.workerID<<workerIDShift | g.sequence
	return id, nil
}

// Timestamp extracts the creation time embedded in an ID.
func Timestamp(id int64) time.Time {
	ms := id>>timestampShift + Epoch
	return time.UnixMilli(ms)
}
