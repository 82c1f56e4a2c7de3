package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// totalPrecision is the number of fractional digits the item sum is
	// rounded to before it is compared with the recorded total.
	totalPrecision = 10

	// Amounts outside these bounds are rejected as invalid. They keep every
	// score within an int and bound the cost of decimal rescaling.
	maxAmountLength   = 64
	maxIntegerDigits  = 15
	maxFractionDigits = 20
)

// Validate checks a submitted receipt and returns its validated form.
// Checks run in order and stop at the first failure: required fields,
// total against the item prices, purchase date, purchase time.
func Validate(raw *RawReceipt) (*Receipt, error) {
	if raw == nil {
		raw = &RawReceipt{}
	}

	switch {
	case raw.Retailer == nil:
		return nil, &MissingFieldError{Field: "retailer"}
	case raw.PurchaseDate == nil:
		return nil, &MissingFieldError{Field: "purchaseDate"}
	case raw.PurchaseTime == nil:
		return nil, &MissingFieldError{Field: "purchaseTime"}
	case raw.Items == nil:
		return nil, &MissingFieldError{Field: "items"}
	case raw.Total == nil:
		return nil, &MissingFieldError{Field: "total"}
	}

	items := make([]Item, 0, len(*raw.Items))
	sum := decimal.Zero
	for i, rawItem := range *raw.Items {
		if rawItem.ShortDescription == nil {
			return nil, &MissingFieldError{Field: fmt.Sprintf("items[%d].shortDescription", i)}
		}
		price, err := parseAmount(fmt.Sprintf("items[%d].price", i), rawItem.Price)
		if err != nil {
			return nil, err
		}
		sum = sum.Add(price)
		items = append(items, Item{
			ShortDescription: *rawItem.ShortDescription,
			Price:            price,
		})
	}

	total, err := parseAmount("total", raw.Total)
	if err != nil {
		return nil, err
	}
	if !total.Equal(sum.RoundBank(totalPrecision)) {
		return nil, ErrTotalMismatch
	}

	purchaseDate, err := time.Parse(dateLayout, *raw.PurchaseDate)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	purchaseTime, err := time.Parse(timeLayout, *raw.PurchaseTime)
	if err != nil {
		return nil, ErrInvalidTimeFormat
	}

	return &Receipt{
		Retailer:     *raw.Retailer,
		PurchaseDate: purchaseDate,
		PurchaseTime: purchaseTime,
		Items:        items,
		Total:        total,
	}, nil
}

// parseAmount parses a money string. Surrounding whitespace is ignored.
// Amounts with more than maxIntegerDigits integer digits or more than
// maxFractionDigits fractional digits are invalid.
func parseAmount(field string, value *string) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, &MissingFieldError{Field: field}
	}
	invalid := &MissingFieldError{Field: field, Value: *value, Invalid: true}

	text := strings.TrimSpace(*value)
	if len(text) > maxAmountLength {
		return decimal.Zero, invalid
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, invalid
	}

	// exponent first, before anything rescales the coefficient
	exp := int(amount.Exponent())
	if exp < -maxFractionDigits || exp > maxIntegerDigits {
		return decimal.Zero, invalid
	}
	if !amount.IsZero() && amount.NumDigits()+exp > maxIntegerDigits {
		return decimal.Zero, invalid
	}
	return amount, nil
}
