package billing

import (
	"net/url"
	"strconv"
	"strings"
)

// Links builds the provider's hosted-page redirects. No network calls are made.
type Links struct {
	CheckoutURL string
	ReturnURL   string
	ProductID   string
	Quantity    int
}

// CardUpdate returns the card-update page for a subscription.
func (l Links) CardUpdate(subscriptionID, otp string) string {
	q := url.Values{}
	q.Set("otp", otp)
	q.Set("return_url", l.ReturnURL)
	return l.base() + "/subscriptions/" + url.PathEscape(subscriptionID) + "/card?" + q.Encode()
}

// Checkout returns the checkout page for the configured product.
func (l Links) Checkout(otp string) string {
	qty := l.Quantity
	if qty < 1 {
		qty = 1
	}
	q := url.Values{}
	q.Set("product", l.ProductID)
	q.Set("quantity", strconv.Itoa(qty))
	q.Set("otp", otp)
	q.Set("return_url", l.ReturnURL)
	return l.base() + "/checkout?" + q.Encode()
}

func (l Links) base() string {
	return strings.TrimRight(l.CheckoutURL, "/")
}
