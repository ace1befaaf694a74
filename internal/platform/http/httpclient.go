package http

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent identifies the backend to market data vendors.
const DefaultUserAgent = "folio-backend"

// NewHTTPClient は外部API呼び出し用のHTTPクライアントを作成します。
//
// Client.Timeout は設定しません。呼び出し側（FMP, ECB）がリクエストごとに
// context.WithTimeout で期限を付け、タイムアウトを区別してログに残すためです。
//
//   - Dialer / TLSHandshake: 接続確立は5秒まで
//   - MaxIdleConnsPerHost: 各ベンダーは単一ホストなので、並行するクォート取得で接続を再利用できるよう引き上げ
//   - User-Agent: 未設定のリクエストに userAgent を付与
func NewHTTPClient(userAgent string) *http.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Transport: &userAgentTransport{next: t, userAgent: userAgent}}
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	// RoundTripper はリクエストを変更してはならないため複製する
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(r)
}
