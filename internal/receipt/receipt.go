// Package receipt renders pickup QR codes for orders.
package receipt

import (
	"fmt"
	"net/url"
	"strings"

	"karavanCanteen/models"

	"github.com/skip2/go-qrcode"
)

// QRGenerator renders a PNG QR code for an order.
type QRGenerator interface {
	Generate(o *models.Order) ([]byte, error)
}

// DefaultQRGenerator encodes a pickup link under BaseURL that canteen staff scan at the
// counter.
type DefaultQRGenerator struct {
	BaseURL string
	Size    int
}

// Content is the text encoded in the code for o.
func (g DefaultQRGenerator) Content(o *models.Order) string {
	base := strings.TrimRight(g.BaseURL, "/")
	return fmt.Sprintf("%s/pickup?order=%s&id=%d", base, url.QueryEscape(o.OrderNumber), o.ID)
}

func (g DefaultQRGenerator) Generate(o *models.Order) ([]byte, error) {
	if o == nil || o.OrderNumber == "" {
		return nil, fmt.Errorf("order has no number")
	}
	size := g.Size
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(g.Content(o), qrcode.Medium, size)
}
