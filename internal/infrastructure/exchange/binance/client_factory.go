package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"
)

// ===== Credentials 凭证 =====

// Credentials 包含 API 凭证和签名方法
type Credentials struct {
	apiKey    string
	apiSecret string
}

// NewCredentials 创建凭证对象
func NewCredentials(apiKey, apiSecret string) *Credentials {
	return &Credentials{
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// Sign 生成 HMAC-SHA256 签名
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// APIKey 返回 API Key
func (c *Credentials) APIKey() string {
	return c.apiKey
}

type APIClient struct {
	credentials *Credentials
	httpClient  *http.Client
	baseURL     string
	recvWindow  int
}

// NewAPIClient 创建 fapi 客户端。
// httpClient 的超时即所有交易所调用的显式调用超时。
func NewAPIClient(apiKey, apiSecret, baseURL string, recvWindow int, timeout time.Duration) *APIClient {
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}
	if recvWindow <= 0 {
		recvWindow = 5000
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &APIClient{
		credentials: NewCredentials(apiKey, apiSecret),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    baseURL,
		recvWindow: recvWindow,
	}
}
