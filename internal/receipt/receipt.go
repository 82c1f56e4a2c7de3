package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawReceipt is a receipt exactly as submitted. Pointer fields distinguish
// an absent (or null) field from an empty one.
type RawReceipt struct {
	Retailer     *string    `json:"retailer"`
	PurchaseDate *string    `json:"purchaseDate"`
	PurchaseTime *string    `json:"purchaseTime"`
	Items        *[]RawItem `json:"items"`
	Total        *string    `json:"total"`
}

// RawItem is a single submitted line item
type RawItem struct {
	ShortDescription *string `json:"shortDescription"`
	Price            *string `json:"price"`
}

// Receipt is a validated receipt, ready to be scored
type Receipt struct {
	Retailer     string
	PurchaseDate time.Time // date only
	PurchaseTime time.Time // clock time only, minute precision
	Items        []Item
	Total        decimal.Decimal
}

// Item is a validated line item
type Item struct {
	ShortDescription string
	Price            decimal.Decimal
}

// ScoreRecord is what a store keeps for each processed receipt
type ScoreRecord struct {
	ID        string    `json:"id"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}
