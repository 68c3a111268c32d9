// Package store is the ScyllaDB persistence layer: the append-only messages
// table written by the relay, and the conversation read-model tables
// maintained by the messaging consumer.
package store

import (
	"time"

	"github.com/gocql/gocql"
)

// Session wraps a gocql session with the query helpers this repo needs.
type Session struct {
	*gocql.Session
}

// NewSession connects to the cluster with quorum consistency and a bounded
// retry policy for transient node failures.
func NewSession(hosts []string, keyspace string) (*Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return &Session{Session: session}, nil
}
