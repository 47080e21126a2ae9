// internal/inventory/item.go
package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is a validated stock line ready to be persisted.
type Item struct {
	EAN   string          `json:"ean" validate:"required,ean"`
	Qty   int             `json:"qty" validate:"gte=0"`
	Price decimal.Decimal `json:"price"`
}

// RawItem keeps the inbound values untyped so one malformed field only
// invalidates its own row instead of the whole request body.
type RawItem struct {
	EAN   interface{}
	Qty   interface{}
	Price interface{}
}

func (r *RawItem) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("stock item must be an object")
	}

	r.EAN = fields["ean"]
	r.Qty = firstPresent(fields, "qty", "quantity", "quantidade")
	r.Price = firstPresent(fields, "price", "preco", "preço")
	return nil
}

func firstPresent(fields map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v
		}
	}
	return nil
}

// FieldError names the offending field of a rejected row.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Convert coerces the raw values into an Item. It does not run struct
// validation; callers validate the result.
func (r RawItem) Convert() (Item, error) {
	ean, err := stringValue(r.EAN)
	if err != nil {
		return Item{}, &FieldError{Field: "ean", Err: err}
	}

	qty, err := quantityValue(r.Qty)
	if err != nil {
		return Item{EAN: ean}, &FieldError{Field: "qty", Err: err}
	}

	price, err := priceValue(r.Price)
	if err != nil {
		return Item{EAN: ean, Qty: qty}, &FieldError{Field: "price", Err: err}
	}

	return Item{EAN: ean, Qty: qty, Price: price}, nil
}

// EANString gives a best-effort identifier for diagnostics.
func (r RawItem) EANString() string {
	s, _ := stringValue(r.EAN)
	return s
}

func stringValue(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", ErrEmptyValue
	case string:
		return strings.TrimSpace(t), nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("unexpected %T", v)
	}
}

func quantityValue(v interface{}) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, ErrEmptyValue
	case json.Number:
		return ParseQuantity(t.String())
	case string:
		return ParseQuantity(t)
	default:
		return 0, ErrNotInteger
	}
}

func priceValue(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, ErrEmptyValue
	case json.Number:
		return ParsePrice(t.String())
	case string:
		return ParsePrice(t)
	default:
		return decimal.Zero, ErrNotNumber
	}
}
