package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	return "invalid request"
}

var assetNamePattern = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)

func ValidateCreateOrder(assetName, side, size, price string) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, validateAssetName(assetName)...)

	side = strings.ToUpper(strings.TrimSpace(side))
	if side != "BUY" && side != "SELL" {
		errs = append(errs, FieldError{Field: "side", Message: "side must be BUY or SELL"})
	}

	if _, err := parsePositiveDecimal(size, "size"); err != nil {
		errs = append(errs, FieldError{Field: "size", Message: err.Error()})
	}
	if _, err := parsePositiveDecimal(price, "price"); err != nil {
		errs = append(errs, FieldError{Field: "price", Message: err.Error()})
	}

	return errs
}

func ValidateDeposit(assetName, size string) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, validateAssetName(assetName)...)
	if _, err := parsePositiveDecimal(size, "size"); err != nil {
		errs = append(errs, FieldError{Field: "size", Message: err.Error()})
	}

	return errs
}

func ValidateCredentials(username, password string) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(username) == "" {
		errs = append(errs, FieldError{Field: "username", Message: "username is required"})
	}
	if password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	} else if len(password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}

	return errs
}

func validateAssetName(assetName string) ValidationErrors {
	trimmed := strings.TrimSpace(assetName)
	if trimmed == "" {
		return ValidationErrors{{Field: "assetName", Message: "assetName is required"}}
	}
	if !assetNamePattern.MatchString(strings.ToUpper(trimmed)) {
		return ValidationErrors{{Field: "assetName", Message: "assetName must be alphanumeric, at most 16 characters"}}
	}
	return nil
}

func parsePositiveDecimal(raw, field string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	val, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal", field)
	}
	if val.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%s must be positive", field)
	}
	return val, nil
}

func NormalizeAssetName(assetName string) string {
	return strings.ToUpper(strings.TrimSpace(assetName))
}
