package sales

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
)

const (
	receiptPrefix       = "RCP"
	maxReceiptNumberLen = 64
	qrImageSize         = 256
)

// ReceiptGenerator produces RCP-<unixMillis>-<0..999> numbers.
type ReceiptGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	rand *rand.Rand
}

// NewReceiptGenerator seeds a generator from the wall clock.
func NewReceiptGenerator() *ReceiptGenerator {
	return &ReceiptGenerator{
		now:  time.Now,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *ReceiptGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s-%d-%d", receiptPrefix, g.now().UnixMilli(), g.rand.Intn(1000))
}

// QRGenerator renders the receipt lookup link as a PNG.
type QRGenerator interface {
	Generate(receiptNumber string) ([]byte, error)
}

// DefaultQRGenerator points at BaseURL/<receipt>.
type DefaultQRGenerator struct {
	BaseURL string
}

func (g DefaultQRGenerator) Generate(receiptNumber string) ([]byte, error) {
	qrData := fmt.Sprintf("%s/%s", strings.TrimRight(g.BaseURL, "/"), url.PathEscape(receiptNumber))
	return qrcode.Encode(qrData, qrcode.Medium, qrImageSize)
}
