package upstream

import (
	"context"
	"errors"
	"net/http"
)

// CheckoutRequest represents the creation of a Stripe checkout session
type CheckoutRequest struct {
	PriceID    string `json:"price_id"`
	Quantity   int    `json:"quantity"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

type checkoutResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// CreateCheckoutSession creates a Stripe checkout session and returns the URL to redirect the user to
func (client *Client) CreateCheckoutSession(ctx context.Context, token string, checkout *CheckoutRequest) (string, error) {
	response := new(checkoutResponse)
	if err := client.do(ctx, token, http.MethodPost, "/api/stripe/create-checkout-session", nil, checkout, response); err != nil {
		return "", err
	}
	if response.URL == "" {
		if response.Error != "" {
			return "", &RejectedError{Operation: "checkout", Message: response.Error}
		}
		return "", errors.New("checkout response carries no URL")
	}
	return response.URL, nil
}
