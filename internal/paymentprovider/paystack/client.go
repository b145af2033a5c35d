// Package paystack: клиент REST API Paystack: инициализация и проверка транзакций.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/paymentprovider"
)

// DefaultBaseURL: адрес API Paystack.
const DefaultBaseURL = "https://api.paystack.co"

// Client выполняет запросы к Paystack.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент Paystack. Пустой baseURL заменяется DefaultBaseURL.
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    string          `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
	Customer  struct {
		CustomerCode string `json:"customer_code"`
		Email        string `json:"email"`
	} `json:"customer"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c.secretKey == "" {
		return apperr.New(apperr.CodeConfig, "Paystack secret key is not configured")
	}

	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return apperr.Wrap(apperr.CodeInternal, "encode paystack request", err)
		}
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "build paystack request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeProvider, "paystack request failed", err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("paystack responded with %s", resp.Status)
		}
		return apperr.New(apperr.CodeProvider, msg)
	}
	if decodeErr != nil {
		return apperr.Wrap(apperr.CodeProvider, "decode paystack response", decodeErr)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.Wrap(apperr.CodeProvider, "decode paystack data", err)
		}
	}
	return nil
}

// Initialize создаёт транзакцию и возвращает ссылку на оплату.
func (c *Client) Initialize(ctx context.Context, p paymentprovider.InitializeParams) (*paymentprovider.Transaction, error) {
	req := initializeRequest{
		Email:       p.Email,
		Amount:      p.Amount,
		Reference:   p.Reference,
		CallbackURL: p.CallbackURL,
		Currency:    p.Currency,
		Metadata:    p.Metadata,
	}
	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", req, &data); err != nil {
		return nil, err
	}
	return &paymentprovider.Transaction{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// Verify проверяет транзакцию по reference.
func (c *Client) Verify(ctx context.Context, reference string) (*paymentprovider.Verification, error) {
	var data verifyData
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}

	v := &paymentprovider.Verification{
		Status:       data.Status,
		Reference:    data.Reference,
		Amount:       data.Amount,
		Currency:     data.Currency,
		CustomerCode: data.Customer.CustomerCode,
		Metadata:     parseMetadata(data.Metadata),
	}
	if data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			v.PaidAt = &t
		}
	}
	return v, nil
}

// parseMetadata принимает metadata в виде объекта или JSON-строки,
// Paystack возвращает пустую строку, если metadata не передавалась.
func parseMetadata(raw json.RawMessage) map[string]string {
	res := map[string]string{}
	if len(raw) == 0 {
		return res
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if encoded == "" {
			return res
		}
		raw = json.RawMessage(encoded)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return res
	}
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			res[k] = val
		case nil:
		default:
			b, _ := json.Marshal(val)
			res[k] = string(b)
		}
	}
	return res
}
