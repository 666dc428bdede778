package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/dukapay/dukapay-gobackend/internal/models"
)

// Distinct failure points of the outbound call, matched with errors.Is at
// the handler boundary.
var (
	ErrAuth     = errors.New("gateway authentication failed")
	ErrTimeout  = errors.New("gateway timed out")
	ErrRequest  = errors.New("gateway request failed")
	ErrRejected = errors.New("gateway rejected request")
)

const (
	tokenPath       = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath     = "/mpesa/stkpush/v1/processrequest"
	transactionType = "CustomerPayBillOnline"
)

// PushRequest carries the caller-supplied half of an STK push. The client
// derives the timestamp and password from the merchant config itself.
type PushRequest struct {
	Amount           int64
	PhoneNumber      string
	AccountReference string
	CallbackURL      string
	Description      string
}

// PushResponse is the gateway's synchronous acknowledgment. ResponseCode
// "0" means the push was accepted, not that payment succeeded; the true
// result arrives later on the callback.
type PushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type pushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// Client talks to the Daraja token and STK push endpoints.
type Client struct {
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Timestamp renders t as the 14-digit YYYYMMDDHHMMSS form the gateway
// validates against.
func Timestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// Password derives the request password as base64(shortcode+passkey+timestamp).
// The gateway recomputes this server-side, so the derivation must match
// bit for bit.
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// AccessToken fetches a bearer token using HTTP Basic auth of
// consumerKey:consumerSecret.
func (c *Client) AccessToken(ctx context.Context, cfg *models.MerchantConfig) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.SetBasicAuth(cfg.ConsumerKey, cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: token request: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: token request: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", ErrAuth, resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrAuth, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}
	return token.AccessToken, nil
}

// Push obtains a token and submits the STK push request. A non-2xx from the
// push endpoint maps to ErrRequest with the raw body kept for diagnostics;
// an accepted HTTP exchange whose ResponseCode is not "0" maps to
// ErrRejected with the gateway's description.
func (c *Client) Push(ctx context.Context, cfg *models.MerchantConfig, pr PushRequest) (*PushResponse, error) {
	token, err := c.AccessToken(ctx, cfg)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(c.now())
	payload := pushPayload{
		BusinessShortCode: cfg.ShortCode,
		Password:          Password(cfg.ShortCode, cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            pr.Amount,
		PartyA:            pr.PhoneNumber,
		PartyB:            cfg.ShortCode,
		PhoneNumber:       pr.PhoneNumber,
		CallBackURL:       pr.CallbackURL,
		AccountReference:  pr.AccountReference,
		TransactionDesc:   pr.Description,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal push payload: %v", ErrRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", cfg.BaseURL+stkPushPath, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: push request: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: push request: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("STK push failed with status %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequest, resp.StatusCode, string(body))
	}

	var pushResp PushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("%w: decode push response: %v", ErrRequest, err)
	}

	if pushResp.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, pushResp.ResponseDescription)
	}
	if pushResp.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: acceptance without CheckoutRequestID", ErrRequest)
	}

	return &pushResp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
