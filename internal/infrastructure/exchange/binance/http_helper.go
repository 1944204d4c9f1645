package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError carries the structured Binance error payload so callers can
// branch on the business code instead of scraping message text.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance http %d code %d: %s", e.Status, e.Code, e.Message)
}

// HTTPStatus / ErrCode / ErrMessage implement the domain ExchangeError contract.
func (e *APIError) HTTPStatus() int    { return e.Status }
func (e *APIError) ErrCode() int       { return e.Code }
func (e *APIError) ErrMessage() string { return e.Message }

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Message: string(body)}
	var payload struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Msg != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Msg
	}
	return apiErr
}

// signedRequest is shared helper for signed REST calls.
func (c *APIClient) signedRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	if params.Get("recvWindow") == "" {
		params.Set("recvWindow", strconv.Itoa(c.recvWindow))
	}

	query := params.Encode()
	signature := c.credentials.Sign(query)
	endpoint := fmt.Sprintf("%s%s?%s&signature=%s", strings.TrimRight(c.baseURL, "/"), path, query, signature)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.credentials.APIKey())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

// publicRequest is shared helper for unsigned REST calls.
func (c *APIClient) publicRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *APIClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, body)
	}

	return body, nil
}
