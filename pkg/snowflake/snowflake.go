// Package snowflake generates 64-bit time-ordered message IDs: 41 bits of
// milliseconds since a fixed epoch, 10 bits of node, 12 bits of sequence.
// IDs from a single node are strictly increasing, which gives message history
// its ordering without a separate sort column.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	nodeBits  = 10
	stepBits  = 12
	nodeMax   = -1 ^ (-1 << nodeBits)
	stepMask  = -1 ^ (-1 << stepBits)
	timeShift = nodeBits + stepBits
	nodeShift = stepBits

	// epoch is 2024-01-01 00:00:00 UTC in unix millis.
	epoch int64 = 1704067200000
)

// Node generates IDs for a single relay instance. Node IDs must be unique
// across instances sharing a message store.
type Node struct {
	mu   sync.Mutex
	time int64
	node int64
	step int64
}

func NewNode(node int64) (*Node, error) {
	if node < 0 || node > nodeMax {
		return nil, errors.New("snowflake: node number must be between 0 and 1023")
	}
	return &Node{node: node}, nil
}

// Generate returns the next ID. Safe for concurrent use.
func (n *Node) Generate() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < n.time {
		// Clock moved backwards; hold the last timestamp instead of
		// emitting an ID that would sort before already-issued ones.
		now = n.time
	}

	if n.time == now {
		n.step = (n.step + 1) & stepMask
		if n.step == 0 {
			for now <= n.time {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.step = 0
	}
	n.time = now

	return ((now - epoch) << timeShift) | (n.node << nodeShift) | n.step
}

// Time extracts the embedded timestamp of an ID.
func Time(id int64) time.Time {
	ms := (id >> timeShift) + epoch
	return time.UnixMilli(ms)
}
