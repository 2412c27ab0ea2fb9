package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newOrderNumber builds a human-readable unique order number, e.g.
// ORD-20260901-7F3A2C. Collisions are possible in principle and are
// handled by the create retry loop.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
