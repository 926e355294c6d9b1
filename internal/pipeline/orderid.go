package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// clientOrderIDPrefix tags ids produced by this pipeline so they are
// recognizable in exchange logs and the ledger.
const clientOrderIDPrefix = "za_"

// MakeClientOrderID derives a deterministic, collision-resistant
// idempotency key for a trade intent. Identical inputs always produce
// the identical id, so replaying a tick after a crash regenerates the
// same key and the ledger's uniqueness constraint deduplicates the
// work. The digest is truncated to keep the id within exchange client
// id length limits.
func MakeClientOrderID(strategyID, symbol, side string, intentTS time.Time, signalSeq int, reason string) string {
	raw := strings.Join([]string{
		strategyID,
		symbol,
		side,
		intentTS.Format(time.RFC3339Nano),
		fmt.Sprintf("%d", signalSeq),
		reason,
	}, "|")
	digest := sha256.Sum256([]byte(raw))
	return clientOrderIDPrefix + hex.EncodeToString(digest[:])[:24]
}
