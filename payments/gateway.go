package payments

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// Credentials are the gateway key pair. KeyID is public; Secret never leaves
// the server.
type Credentials struct {
	KeyID  string
	Secret string
}

func (c Credentials) Configured() bool {
	return c.KeyID != "" && c.Secret != ""
}

type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
}

// RazorpayGateway creates orders through the Razorpay Orders API.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(creds Credentials) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(creds.KeyID, creds.Secret)}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
		"notes":           notes,
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := g.client.Order.Create(data, nil)
		done <- result{body: body, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, res.err
	}

	id, _ := res.body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("gateway returned an order without id")
	}
	order := &GatewayOrder{ID: id, Amount: req.Amount, Currency: req.Currency}
	if amt, ok := res.body["amount"].(float64); ok && amt > 0 {
		order.Amount = int64(amt)
	}
	if cur, ok := res.body["currency"].(string); ok && cur != "" {
		order.Currency = cur
	}
	return order, nil
}
