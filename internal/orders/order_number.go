package orders

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
	"time"
)

// NumberGenerator returns a candidate human-facing order number.
type NumberGenerator func(now time.Time) (string, error)

// NewOrderNumber returns ORD-<year>-<8 base32 chars> from 40 random bits.
// Uniqueness is enforced by ux_orders_order_number, not here.
func NewOrderNumber(now time.Time) (string, error) {
	return newOrderNumber(rand.Reader, now)
}

func newOrderNumber(src io.Reader, now time.Time) (string, error) {
	buf := make([]byte, 5)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("read order number entropy: %w", err)
	}
	return fmt.Sprintf("ORD-%04d-%s", now.UTC().Year(), base32.StdEncoding.EncodeToString(buf)), nil
}
