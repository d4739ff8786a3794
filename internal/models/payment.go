package models

import "strings"

// PaymentMethod records how an order was paid. Only the mock method exists;
// there is no real payment integration.
type PaymentMethod string

const PaymentMethodMock PaymentMethod = "mock"

// CardType is the card network detected from the card number.
type CardType string

const (
	CardTypeVisa       CardType = "visa"
	CardTypeMastercard CardType = "mastercard"
	CardTypeAmex       CardType = "amex"
	CardTypeOther      CardType = "other"
)

// DetectCardType guesses the card network from the leading digits.
func DetectCardType(number string) CardType {
	digits := CardDigits(number)
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "4"):
		return CardTypeVisa
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return CardTypeAmex
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return CardTypeMastercard
	default:
		return CardTypeOther
	}
}

// CardDigits strips spaces and dashes from a card number.
func CardDigits(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LastFour returns the last four digits of a card number.
func LastFour(number string) string {
	digits := CardDigits(number)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
