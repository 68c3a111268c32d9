package store

import "github.com/gocql/gocql"

// EnsureKeyspace creates the keyspace if missing. It needs a session bound to
// the system keyspace, which is why it takes raw connection parameters.
func EnsureKeyspace(hosts []string, keyspace string) error {
	sys, err := NewSession(hosts, "system")
	if err != nil {
		return err
	}
	defer sys.Close()

	return sys.Query(`CREATE KEYSPACE IF NOT EXISTS ` + keyspace +
		` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
}

// EnsureTables creates the tables this repo owns. Dev-time bootstrap only;
// production schema is managed out of band.
func EnsureTables(session *Session) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			conversation text,
			id bigint,
			sender_id text,
			receiver_id text,
			content text,
			type text,
			created_at timestamp,
			PRIMARY KEY (conversation, id)
		) WITH CLUSTERING ORDER BY (id DESC)`,

		`CREATE TABLE IF NOT EXISTS user_conversations (
			user_id text,
			other_user_id text,
			last_updated timestamp,
			PRIMARY KEY (user_id, other_user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS conversation_counters (
			user_id text,
			other_user_id text,
			unread_count counter,
			PRIMARY KEY (user_id, other_user_id)
		)`,
	}
	for _, stmt := range stmts {
		if err := session.Query(stmt).Consistency(gocql.All).Exec(); err != nil {
			return err
		}
	}
	return nil
}
