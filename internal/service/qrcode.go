package service

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

type DefaultQRGenerator struct {
	BaseURL string
}

func (g DefaultQRGenerator) Generate(venueSlug string) ([]byte, error) {
	qrData := fmt.Sprintf("%s/m/%s", g.BaseURL, venueSlug)
	return qrcode.Encode(qrData, qrcode.Medium, 256)
}

var _ QRGenerator = DefaultQRGenerator{}
