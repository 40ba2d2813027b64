package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Distributor identifies whose inventory is being verified.
type Distributor struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// SKU is an immutable inventory snapshot row for a distributor.
type SKU struct {
	ProductCode    string          `json:"productCode"`
	ProductName    string          `json:"productName"`
	SKUCode        string          `json:"skuCode"`
	SKUName        string          `json:"skuName"`
	Unit           string          `json:"unit"`
	OpeningStock   int             `json:"openingStock"`
	YTDSales       int             `json:"ytdSales"`
	YTDLiquidation int             `json:"ytdLiquidation"`
	CurrentStock   int             `json:"currentStock"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
}

// Key is the per-SKU identifier used for inputs and allocations.
func (s SKU) Key() string {
	return SKUKey(s.ProductCode, s.SKUCode)
}

// Label renders "Product - SKU name (SKU code)".
func (s SKU) Label() string {
	return fmt.Sprintf("%s - %s (%s)", s.ProductName, s.SKUName, s.SKUCode)
}

var productCodeEscaper = strings.NewReplacer("~", "~~", "-", "~-")

// SKUKey joins product and SKU codes as "product-sku". A "-" or "~" in the product
// code is escaped with "~", so the first bare "-" always ends the product code and
// distinct code pairs never share a key.
func SKUKey(productCode, skuCode string) string {
	return productCodeEscaper.Replace(productCode) + "-" + skuCode
}

// Item pairs a changed SKU with the operator-entered new stock.
type Item struct {
	SKU      SKU `json:"sku"`
	NewStock int `json:"newStock"`
}

// Delta is the absolute stock difference that has to be allocated.
func (i Item) Delta() int {
	return abs(i.SKU.CurrentStock - i.NewStock)
}

// Direction is "Outward" when stock decreased and "Return" otherwise.
func (i Item) Direction() string {
	if i.NewStock < i.SKU.CurrentStock {
		return "Outward"
	}
	return "Return"
}

// Operator is the verifier snapshot attached to an attestation.
type Operator struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	Designation string `json:"designation,omitempty"`
}

// Location is a device position with an optional human readable address.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Attestation holds the signature and the once-stamped capture metadata.
type Attestation struct {
	Signature  string    `json:"signature,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
	CapturedBy Operator  `json:"capturedBy"`
	Location   *Location `json:"location,omitempty"`
}

// HasSignature reports whether a non-empty image or URL is present.
func (a *Attestation) HasSignature() bool {
	return a != nil && strings.TrimSpace(a.Signature) != ""
}

// RawSignature reports whether the signature is still an inline client image.
func (a *Attestation) RawSignature() bool {
	return a.HasSignature() && strings.HasPrefix(a.Signature, "data:image")
}

// Proof is an uploaded photo or document reference.
type Proof struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Name       string    `json:"name,omitempty"`
	MimeType   string    `json:"mimeType,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
	CapturedBy string    `json:"capturedBy,omitempty"`
	Location   *Location `json:"location,omitempty"`
}
