package receipt

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	quarter          = decimal.New(25, -2)
	descriptionRatio = decimal.New(2, -1)
)

// rule awards points for one property of a receipt
type rule func(r *Receipt) int

// rules are independent and additive, so their order does not matter
var rules = []rule{
	retailerNamePoints,
	roundDollarPoints,
	quarterMultiplePoints,
	itemPairPoints,
	descriptionLengthPoints,
	oddDayPoints,
	afternoonPoints,
}

// Points computes the score for a validated receipt:
//   - 1 point for every alphanumeric character in the retailer name
//   - 50 points if the total is a round dollar amount
//   - 25 points if the total is a multiple of 0.25
//   - 5 points for every two items
//   - ceil(price * 0.2) for every item whose trimmed description length is a multiple of 3
//   - 6 points if the purchase day is odd
//   - 10 points if the purchase time is after 14:00 and before 16:00
func Points(r *Receipt) int {
	points := 0
	for _, award := range rules {
		points += award(r)
	}
	return points
}

func retailerNamePoints(r *Receipt) int {
	points := 0
	for _, c := range r.Retailer {
		if unicode.IsLetter(c) || unicode.IsNumber(c) {
			points++
		}
	}
	return points
}

func roundDollarPoints(r *Receipt) int {
	if r.Total.IsInteger() {
		return 50
	}
	return 0
}

func quarterMultiplePoints(r *Receipt) int {
	if r.Total.Mod(quarter).RoundBank(totalPrecision).IsZero() {
		return 25
	}
	return 0
}

func itemPairPoints(r *Receipt) int {
	return len(r.Items) / 2 * 5
}

func descriptionLengthPoints(r *Receipt) int {
	points := 0
	for _, item := range r.Items {
		// length in characters, not bytes
		if utf8.RuneCountInString(strings.TrimSpace(item.ShortDescription))%3 == 0 {
			points += int(item.Price.Mul(descriptionRatio).Ceil().IntPart())
		}
	}
	return points
}

func oddDayPoints(r *Receipt) int {
	if r.PurchaseDate.Day()%2 == 1 {
		return 6
	}
	return 0
}

func afternoonPoints(r *Receipt) int {
	minutes := r.PurchaseTime.Hour()*60 + r.PurchaseTime.Minute()
	if minutes > 14*60 && minutes < 16*60 {
		return 10
	}
	return 0
}
