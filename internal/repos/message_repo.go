package repos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// MessageRepo is the idempotency ledger for inbound webhook deliveries.
type MessageRepo struct{ db *sqlx.DB }

func NewMessageRepo(db *sqlx.DB) *MessageRepo { return &MessageRepo{db: db} }

// Claim records messageID as being processed. The primary key makes the
// check-then-insert atomic: of N concurrent deliveries of the same id exactly
// one gets claimed=true, the rest see claimed=false.
func (r *MessageRepo) Claim(messageID string) (bool, error) {
	res, err := r.db.Exec(`
	  INSERT INTO processed_messages(message_id, processed_at)
	  VALUES (?, CURRENT_TIMESTAMP)
	  ON CONFLICT(message_id) DO NOTHING
	`, messageID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Release drops a claim so the provider's redelivery can reprocess the
// message. Only used when processing aborts before any order side effect.
func (r *MessageRepo) Release(messageID string) error {
	_, err := r.db.Exec(`DELETE FROM processed_messages WHERE message_id = ?`, messageID)
	return err
}

// SaveReply caches the outbound reply for a processed message.
func (r *MessageRepo) SaveReply(messageID, reply string) error {
	_, err := r.db.Exec(`
	  UPDATE processed_messages SET reply = ?, processed_at = CURRENT_TIMESTAMP
	  WHERE message_id = ?
	`, reply, messageID)
	return err
}

// CachedReply returns the reply recorded for a message id, if processing has
// finished. ok is false both for unknown ids and for claims still in flight.
func (r *MessageRepo) CachedReply(messageID string) (string, bool, error) {
	var reply sql.NullString
	err := r.db.Get(&reply, `SELECT reply FROM processed_messages WHERE message_id = ?`, messageID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return reply.String, reply.Valid, nil
}
