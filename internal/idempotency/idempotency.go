package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/iambrandonn/liaison/internal/protocol"
)

// MaxTracked bounds the per-task processed-id set. Oldest entries are
// dropped first; the ledger's own dedupe remains as a second net for
// anything that falls off the end.
const MaxTracked = 500

// HasProcessed reports whether an inbound message id has already been
// applied to the task. Must be consulted before any side-effecting handler
// runs.
func HasProcessed(t *protocol.Task, messageID string) bool {
	if messageID == "" {
		return false
	}
	for _, id := range t.ProcessedMessageIDs {
		if id == messageID {
			return true
		}
	}
	return false
}

// MarkProcessed records a message id as handled. Callers must only invoke
// this after the handler and the reconcile step have both completed, and
// persist the task afterwards; a failure before the durable write leaves
// the message safely retryable.
func MarkProcessed(t *protocol.Task, messageID string) {
	if messageID == "" || HasProcessed(t, messageID) {
		return
	}
	t.ProcessedMessageIDs = append(t.ProcessedMessageIDs, messageID)
	if n := len(t.ProcessedMessageIDs); n > MaxTracked {
		t.ProcessedMessageIDs = t.ProcessedMessageIDs[n-MaxTracked:]
	}
}

// Fingerprint derives a stable message id for inbound messages that arrive
// without one, so retries of the same delivery hash identically.
// Format: "msg:" + hex SHA256(from \n thread_id \n body \n unix-millis)
func Fingerprint(msg *protocol.InboundMessage) string {
	input := msg.From + "\n" +
		msg.ThreadID + "\n" +
		msg.PlainBody + "\n" +
		strconv.FormatInt(msg.Timestamp.UnixMilli(), 10)

	hash := sha256.Sum256([]byte(input))
	return "msg:" + hex.EncodeToString(hash[:])
}
