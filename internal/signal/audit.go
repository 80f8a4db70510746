package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

const auditHashLen = 6

// AuditID fingerprints a signal for same-day dedup. It depends only on the
// UTC calendar day, the symbol, the entry rounded to 4 decimals and the
// truncated score, e.g. BTCUSDT-250314-3fa9c1.
func AuditID(at time.Time, symbol string, entry, score float64) string {
	day := at.UTC()
	key := fmt.Sprintf("%s|%s|%s|%d",
		day.Format("2006-01-02"),
		symbol,
		decimal.NewFromFloat(entry).StringFixed(4),
		int64(math.Trunc(score)),
	)
	sum := sha256.Sum256([]byte(key))

	return fmt.Sprintf("%s-%s-%s", auditPrefix(symbol), day.Format("060102"), hex.EncodeToString(sum[:])[:auditHashLen])
}

func auditPrefix(symbol string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(symbol) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "SIG"
	}
	return b.String()
}
