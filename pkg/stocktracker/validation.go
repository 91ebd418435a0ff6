package stocktracker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"stocktracker/pkg/marketdata"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if a, ok := field.Interface().(Amount); ok {
			return a.InexactFloat64()
		}
		return nil
	}, Amount{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(TransactionInput)
		if in.Kind != KindDividend && !in.Shares.IsPositive() {
			sl.ReportError(in.Shares, "shares", "Shares", "gt", "0")
		}
		// Tiny negatives can survive the float conversion above.
		if in.Price.IsNegative() {
			sl.ReportError(in.Price, "price", "Price", "gte", "0")
		}
		if in.Fee.IsNegative() {
			sl.ReportError(in.Fee, "fee", "Fee", "gte", "0")
		}
	}, TransactionInput{})
	return v
}

// normalizeTransactionInput trims the symbol, fills the date and validates.
func normalizeTransactionInput(in TransactionInput, now time.Time) (TransactionInput, error) {
	in.Symbol = marketdata.NormalizeSymbol(in.Symbol)
	in.Kind = TransactionKind(strings.ToUpper(strings.TrimSpace(string(in.Kind))))
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Date.IsZero() {
		in.Date = now
	}
	in.Date = in.Date.UTC()
	if err := validate.Struct(in); err != nil {
		return in, NewError(ErrCodeInvalidTransaction, validationMessage(err))
	}
	return in, nil
}

func normalizeWatchlistInput(in WatchlistInput) (WatchlistInput, error) {
	in.Symbol = marketdata.NormalizeSymbol(in.Symbol)
	in.Name = strings.TrimSpace(in.Name)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validate.Struct(in); err != nil {
		return in, NewError(ErrCodeInvalidInput, validationMessage(err))
	}
	if in.TargetPrice != nil && in.TargetPrice.IsNegative() {
		return in, NewError(ErrCodeInvalidInput, "targetPrice must be >= 0")
	}
	return in, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be > %s", fe.Field(), fe.Param()))
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
