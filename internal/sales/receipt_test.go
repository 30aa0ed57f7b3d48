package sales

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptGeneratorFormat(t *testing.T) {
	at := time.UnixMilli(1767225600123)
	gen := &ReceiptGenerator{now: func() time.Time { return at }, rand: rand.New(rand.NewSource(1))}

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		receipt := gen.Next()
		assert.Regexp(t, `^RCP-1767225600123-\d{1,3}$`, receipt)
		seen[receipt] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestDefaultQRGeneratorEncodesPNG(t *testing.T) {
	png, err := DefaultQRGenerator{BaseURL: "https://pos.test/receipts/"}.Generate("RCP 1/2")
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
