package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"campuseats/internal/domain"
)

// MpesaConfig holds the Daraja credentials and endpoints.
type MpesaConfig struct {
	BaseURL     string
	ConsumerKey string
	Secret      string
	Shortcode   string
	Passkey     string
	CallbackURL string
}

// MpesaGateway is a plain HTTP client for the Daraja STK push API. Access
// tokens are cached until shortly before expiry.
type MpesaGateway struct {
	cfg    MpesaConfig
	client *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewMpesaGateway(cfg MpesaConfig) *MpesaGateway {
	return &MpesaGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *MpesaGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.Secret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w (%w)", err, domain.ErrRailUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("access token request returned %d (%w)", resp.StatusCode, domain.ErrRailUnavailable)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}

	ttl := 3600
	if n, err := strconv.Atoi(body.ExpiresIn); err == nil && n > 0 {
		ttl = n
	}
	g.token = body.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(ttl-60) * time.Second)
	return g.token, nil
}

func (g *MpesaGateway) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(g.cfg.Shortcode + g.cfg.Passkey + timestamp))
}

func (g *MpesaGateway) post(ctx context.Context, path string, payload, out any) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w (%w)", path, err, domain.ErrRailUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s returned %d (%w)", path, resp.StatusCode, domain.ErrRailUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, data)
	}
	return json.Unmarshal(data, out)
}

func (g *MpesaGateway) Initiate(ctx context.Context, order *domain.Order, phone string) (*InitiationResult, error) {
	timestamp := time.Now().Format("20060102150405")
	payload := map[string]any{
		"BusinessShortCode": g.cfg.Shortcode,
		"Password":          g.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            order.Total.Round(0).IntPart(),
		"PartyA":            phone,
		"PartyB":            g.cfg.Shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       g.cfg.CallbackURL,
		"AccountReference":  order.ID.String(),
		"TransactionDesc":   "Cafeteria order",
	}

	var resp struct {
		CheckoutRequestID string `json:"CheckoutRequestID"`
		ResponseCode      string `json:"ResponseCode"`
		CustomerMessage   string `json:"CustomerMessage"`
	}
	if err := g.post(ctx, "/mpesa/stkpush/v1/processrequest", payload, &resp); err != nil {
		return nil, err
	}
	if resp.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push rejected with code %s: %w", resp.ResponseCode, domain.ErrPaymentDeclined)
	}

	return &InitiationResult{
		CheckoutRequestID: resp.CheckoutRequestID,
		ResponseCode:      resp.ResponseCode,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// stkCallback is the Daraja callback envelope.
type stkCallback struct {
	Body struct {
		StkCallback struct {
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

func (g *MpesaGateway) ParseCallback(payload []byte) (*ConfirmationEvent, error) {
	var cb stkCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("decode stk callback: %w", err)
	}
	sc := cb.Body.StkCallback
	if sc.CheckoutRequestID == "" {
		return nil, fmt.Errorf("stk callback carries no CheckoutRequestID")
	}

	ev := &ConfirmationEvent{
		CheckoutRequestID: sc.CheckoutRequestID,
		Detail:            sc.ResultDesc,
	}
	if sc.ResultCode != 0 {
		ev.Kind = EventFailed
		return ev, nil
	}

	ev.Kind = EventPaid
	for _, item := range sc.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				ev.Receipt = s
			}
		}
	}
	return ev, nil
}

func (g *MpesaGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*ConfirmationEvent, error) {
	timestamp := time.Now().Format("20060102150405")
	payload := map[string]any{
		"BusinessShortCode": g.cfg.Shortcode,
		"Password":          g.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var resp struct {
		ResultCode string `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := g.post(ctx, "/mpesa/stkpushquery/v1/query", payload, &resp); err != nil {
		return nil, err
	}

	ev := &ConfirmationEvent{
		CheckoutRequestID: checkoutRequestID,
		Detail:            resp.ResultDesc,
	}
	switch resp.ResultCode {
	case "0":
		ev.Kind = EventPaid
	case "":
		ev.Kind = EventUnknown
	default:
		ev.Kind = EventFailed
	}
	return ev, nil
}
