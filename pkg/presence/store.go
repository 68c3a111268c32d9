// Package presence mirrors connection state into Redis so presence survives
// relay lookups from other processes (the REST API, future relay instances).
// The relay's in-memory registry stays authoritative for routing; Redis is
// the shared read model.
package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	onlineSetKey   = "presence:online"
	lastSeenPrefix = "presence:last_seen:"
)

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// SetOnline adds userID to the online set.
func (s *Store) SetOnline(ctx context.Context, userID string) error {
	return s.rdb.SAdd(ctx, onlineSetKey, userID).Err()
}

// SetOffline removes userID from the online set and records the last-seen
// timestamp.
func (s *Store) SetOffline(ctx context.Context, userID string) error {
	pipe := s.rdb.Pipeline()
	pipe.SRem(ctx, onlineSetKey, userID)
	pipe.Set(ctx, lastSeenPrefix+userID, time.Now().Unix(), 0)
	_, err := pipe.Exec(ctx)
	return err
}

// IsOnline reports whether userID is in the online set.
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	return s.rdb.SIsMember(ctx, onlineSetKey, userID).Result()
}

// LastSeen returns the recorded last-seen time for userID, or the zero time
// if the user has never disconnected cleanly.
func (s *Store) LastSeen(ctx context.Context, userID string) (time.Time, error) {
	unix, err := s.rdb.Get(ctx, lastSeenPrefix+userID).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}

// OnlineUsers returns all currently online user IDs.
func (s *Store) OnlineUsers(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, onlineSetKey).Result()
}
