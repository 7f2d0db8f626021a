package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"encoding/json"
)

// PaymentIntent is the subset of Stripe's payment intent the core needs
type PaymentIntent struct {
	IntentID     string
	ClientSecret string
	Amount       int64 // cents
	Currency     string
}

// Gateway is the payment collaborator contract. Stripe is the
// authoritative source of truth for payment success or failure; the
// core only creates intents and records outcomes reported back to it.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amount float64, currency string) (*PaymentIntent, error)
}

type httpGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewHTTP creates a Gateway talking to the Stripe REST API
func NewHTTP(apiKey string) Gateway {
	return &httpGateway{apiKey: apiKey, baseURL: "https://api.stripe.com", client: &http.Client{}}
}

func (g *httpGateway) CreatePaymentIntent(ctx context.Context, amount float64, currency string) (*PaymentIntent, error) {
	if currency == "" {
		currency = "usd"
	}
	cents := int64(amount*100 + 0.5) // stripe amounts are in cents

	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", cents))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	req.SetBasicAuth(g.apiKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe create payment intent failed: %s", resp.Status)
	}

	var out struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
		Amount       int64  `json:"amount"`
		Currency     string `json:"currency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("stripe create payment intent: empty intent id")
	}

	return &PaymentIntent{
		IntentID:     out.ID,
		ClientSecret: out.ClientSecret,
		Amount:       out.Amount,
		Currency:     out.Currency,
	}, nil
}
