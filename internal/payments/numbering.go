package payments

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const paymentNumberPrefix = "PAG"

var paymentNumberPattern = regexp.MustCompile(`^PAG-\d{4}-(\d{4,})$`)

// NextPaymentNumber returns PAG-<year>-<seq> where seq is one past the
// highest well-formed sequence in existing. Malformed values are skipped.
func NextPaymentNumber(existing []string, now time.Time) string {
	return formatPaymentNumber(now.Year(), maxSequence(existing)+1)
}

func maxSequence(existing []string) int64 {
	var max int64
	for _, value := range existing {
		seq, ok := parseSequence(value)
		if ok && seq > max {
			max = seq
		}
	}
	return max
}

func parseSequence(value string) (int64, bool) {
	m := paymentNumberPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	seq, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

func formatPaymentNumber(year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%04d", paymentNumberPrefix, year, seq)
}
