package payu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ms-ticketshop/internal/apperrors"
	"ms-ticketshop/internal/config"
	"ms-ticketshop/internal/logger"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	tokenPath  = "/pl/standard/user/oauth/authorize"
	ordersPath = "/api/v2_1/orders"

	CurrencyPLN = "PLN"
	LanguagePL  = "pl"
)

// Client talks to the PayU REST API. It holds no credential state; every
// caller obtains a token with Authenticate and passes it back in.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	posID        string
	secondKey    string
	httpClient   *http.Client
	noRedirect   *http.Client
	logger       *logger.Logger
}

func NewClient(cfg config.PayUConfig, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		posID:        cfg.PosID,
		secondKey:    cfg.SecondKey,
		httpClient:   httpClient,
		noRedirect:   &noRedirect,
		logger:       log,
	}
}

type Buyer struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Language  string `json:"language"`
}

type Product struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  string `json:"quantity"`
}

type OrderRequest struct {
	NotifyURL     string    `json:"notifyUrl"`
	ContinueURL   string    `json:"continueUrl"`
	CustomerIP    string    `json:"customerIp"`
	MerchantPosID string    `json:"merchantPosId"`
	Description   string    `json:"description"`
	CurrencyCode  string    `json:"currencyCode"`
	TotalAmount   string    `json:"totalAmount"`
	ExtOrderID    string    `json:"extOrderId"`
	Buyer         Buyer     `json:"buyer"`
	Products      []Product `json:"products"`
}

// NewProduct formats minor-unit amounts the way PayU expects them.
func NewProduct(name string, unitPrice int64, quantity int) Product {
	return Product{
		Name:      name,
		UnitPrice: strconv.FormatInt(unitPrice, 10),
		Quantity:  strconv.Itoa(quantity),
	}
}

// SplitName turns "Jan Maria Kowalski" into ("Jan", "Maria Kowalski").
func SplitName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "Klient", "-"
	}
	if len(parts) == 1 {
		return parts[0], "-"
	}
	return parts[0], strings.Join(parts[1:], " ")
}

type CreateOrderResult struct {
	HTTPStatus    int
	RedirectURI   string
	RemoteOrderID string
	StatusCode    string
}

func (c *Client) tokenConfig() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		TokenURL:     c.baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
}

// Authenticate runs the client_credentials grant.
func (c *Client) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.tokenConfig().Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayAuthFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", apperrors.ErrGatewayAuthFailed)
	}
	return token, nil
}

// CreateOrder registers the order with PayU. PayU answers with a redirect;
// it is never followed. A transport error is returned as an error, a
// response without a redirect target comes back with an empty RedirectURI.
func (c *Client) CreateOrder(ctx context.Context, token *oauth2.Token, order OrderRequest) (*CreateOrderResult, error) {
	if order.MerchantPosID == "" {
		order.MerchantPosID = c.posID
	}
	if order.CurrencyCode == "" {
		order.CurrencyCode = CurrencyPLN
	}
	if order.Buyer.Language == "" {
		order.Buyer.Language = LanguagePL
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: create order: %v", apperrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	result := &CreateOrderResult{
		HTTPStatus:    resp.StatusCode,
		RedirectURI:   gjson.GetBytes(body, "redirectUri").String(),
		RemoteOrderID: gjson.GetBytes(body, "orderId").String(),
		StatusCode:    gjson.GetBytes(body, "status.statusCode").String(),
	}
	if result.RedirectURI == "" {
		result.RedirectURI = resp.Header.Get("Location")
	}

	c.logger.LogPayment("CREATE", result.RemoteOrderID, fmt.Sprintf("http=%d statusCode=%s redirect=%t",
		resp.StatusCode, result.StatusCode, result.RedirectURI != ""))
	return result, nil
}

// GetOrderStatus returns orders[0].status, or "" when PayU reports none.
// Any non-2xx answer is an ErrGatewayUnavailable.
func (c *Client) GetOrderStatus(ctx context.Context, token *oauth2.Token, remoteOrderID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.orderURL(remoteOrderID), nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: order status: %v", apperrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		c.logger.LogPayment("STATUS", remoteOrderID, fmt.Sprintf("http=%d", resp.StatusCode))
		return "", fmt.Errorf("%w: order status returned %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}
	status := gjson.GetBytes(body, "orders.0.status").String()

	c.logger.LogPayment("STATUS", remoteOrderID, fmt.Sprintf("http=%d status=%s", resp.StatusCode, status))
	return status, nil
}

// Capture confirms a WAITING_FOR_CONFIRMATION order. The body must be empty.
func (c *Client) Capture(ctx context.Context, token *oauth2.Token, remoteOrderID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.orderURL(remoteOrderID)+"/captures", http.NoBody)
	if err != nil {
		return fmt.Errorf("build capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: capture: %v", apperrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.logger.LogPayment("CAPTURE", remoteOrderID, fmt.Sprintf("http=%d", resp.StatusCode))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: capture returned %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) orderURL(remoteOrderID string) string {
	return c.baseURL + ordersPath + "/" + url.PathEscape(remoteOrderID)
}
