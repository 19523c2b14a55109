// Package lightning is the narrow collaborator interface onto the
// Lightning invoice gateway that backs boosts and paywalled comments.
package lightning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/payplaces/directory/pkg/config"
	svcerrors "github.com/payplaces/directory/pkg/errors"
)

// InvoiceStatus mirrors the gateway's view of a payment request.
type InvoiceStatus string

const (
	StatusUnpaid InvoiceStatus = "unpaid"
	StatusPaid   InvoiceStatus = "paid"
)

// IssuedInvoice is what the gateway returns on creation.
type IssuedInvoice struct {
	PaymentRequest string
	GatewayRef     string
}

// Gateway is the interface Commerce depends on.
type Gateway interface {
	CreateInvoice(ctx context.Context, amountSats int64, description string) (*IssuedInvoice, error)
	CheckStatus(ctx context.Context, gatewayRef string) (InvoiceStatus, error)
}

// HTTPGateway is the production Gateway, a thin JSON/HTTP client over
// a Lightning node's invoice API (LNbits/LND-REST shaped).
type HTTPGateway struct {
	httpClient *http.Client
	cfg        config.LightningConfig
}

func NewHTTPGateway(cfg config.LightningConfig) *HTTPGateway {
	return &HTTPGateway{httpClient: &http.Client{Timeout: cfg.RequestTimeout}, cfg: cfg}
}

func (g *HTTPGateway) CreateInvoice(ctx context.Context, amountSats int64, description string) (*IssuedInvoice, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"out":         false,
		"amount":      amountSats,
		"memo":        description,
		"description": description,
	})
	if err != nil {
		return nil, svcerrors.Upstream("marshal invoice request", err)
	}

	body, err := g.post(ctx, "/api/v1/payments", payload)
	if err != nil {
		return nil, err
	}

	return &IssuedInvoice{
		PaymentRequest: gjson.GetBytes(body, "payment_request").String(),
		GatewayRef:     gjson.GetBytes(body, "payment_hash").String(),
	}, nil
}

func (g *HTTPGateway) CheckStatus(ctx context.Context, gatewayRef string) (InvoiceStatus, error) {
	body, err := g.get(ctx, "/api/v1/payments/"+gatewayRef)
	if err != nil {
		return "", err
	}
	if gjson.GetBytes(body, "paid").Bool() {
		return StatusPaid, nil
	}
	return StatusUnpaid, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.GatewayBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, svcerrors.Upstream("build invoice request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", g.cfg.GatewayAPIKey)
	return g.do(req)
}

func (g *HTTPGateway) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.GatewayBaseURL+path, nil)
	if err != nil {
		return nil, svcerrors.Upstream("build invoice status request", err)
	}
	req.Header.Set("X-Api-Key", g.cfg.GatewayAPIKey)
	return g.do(req)
}

func (g *HTTPGateway) do(req *http.Request) ([]byte, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, svcerrors.Upstream("call lightning gateway", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, svcerrors.Upstream("read lightning gateway response", err)
	}
	if resp.StatusCode >= 300 {
		return nil, svcerrors.Upstream("lightning gateway", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}
	return body, nil
}
