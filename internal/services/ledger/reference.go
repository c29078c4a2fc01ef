package ledger

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"kudi/internal/models"

	"github.com/oklog/ulid/v2"
)

// Reference prefixes, one per kind of record.
const (
	PrefixTransfer   = "TRF"
	PrefixAirtime    = "AIR"
	PrefixData       = "DAT"
	PrefixBill       = "BIL"
	PrefixDeposit    = "DEP"
	PrefixCashback   = "CBK"
	PrefixFee        = "FEE"
	PrefixReversal   = "REV"
	PrefixCollection = "COL"
)

// ServicePrefix maps a service to its reference prefix.
func ServicePrefix(s models.Service) string {
	switch s {
	case models.ServiceAirtime:
		return PrefixAirtime
	case models.ServiceData:
		return PrefixData
	case models.ServiceBill:
		return PrefixBill
	default:
		return PrefixTransfer
	}
}

type ReferenceGenerator interface {
	New(prefix string) string
}

// ULIDGenerator produces PREFIX-<ulid> references: a millisecond timestamp
// followed by 80 random bits. The entropy source is monotonic and shared, so
// two references minted in the same millisecond still differ and sort in
// creation order.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func (g *ULIDGenerator) New(prefix string) string {
	g.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	g.mu.Unlock()

	var b strings.Builder
	b.Grow(len(prefix) + 1 + ulid.EncodedSize)
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(id.String())
	return b.String()
}
