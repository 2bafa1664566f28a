package payment

import "fmt"

// Supported payment method names as they appear in requests.
const (
	MethodBank = "Bank"
	MethodIBox = "IBox terminal"
	MethodVisa = "Visa"
)

// UnknownMethodError indicates a payment request named a method outside the
// supported set.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown payment method: %s", e.Method)
}

// Method describes a payment option shown to the customer.
type Method struct {
	ImageURL    string `json:"imageUrl"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Methods returns the static catalog of supported payment options.
func Methods() []Method {
	return []Method{
		{
			ImageURL:    "https://img.icons8.com/color/48/bank-building.png",
			Title:       MethodBank,
			Description: "Payment via bank transfer. Invoice provided.",
		},
		{
			ImageURL:    "https://img.icons8.com/color/48/atm.png",
			Title:       MethodIBox,
			Description: "Pay easily through a terminal near you.",
		},
		{
			ImageURL:    "https://img.icons8.com/color/48/visa.png",
			Title:       MethodVisa,
			Description: "Instant online card payment.",
		},
	}
}

// Card holds the card details required for online card payments.
type Card struct {
	Holder      string `json:"holder"`
	CardNumber  string `json:"cardNumber"`
	MonthExpire int    `json:"monthExpire"`
	YearExpire  int    `json:"yearExpire"`
	CVV2        int    `json:"cvv2"`
}

// lastFour returns the final four digits of the card number.
func (c Card) lastFour() string {
	if len(c.CardNumber) < 4 {
		return c.CardNumber
	}
	return c.CardNumber[len(c.CardNumber)-4:]
}
