package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient は外部サイト呼び出し用に設定されたHTTPクライアントを作成します。
//
// 設定:
//   - Proxy: 環境変数（HTTP_PROXYなど）が設定されている場合に使用
//   - Dialer.Timeout: TCP接続タイムアウト（デフォルトより短い）
//   - Dialer.KeepAlive: 再利用可能なTCP接続の維持期間
//   - MaxIdleConns: 最大アイドル接続数（高負荷時の枯渇防止のため100）
//   - IdleConnTimeout: アイドル接続の維持期間
//   - TLSHandshakeTimeout: HTTPSハンドシェイクの最大時間
//   - Client.Timeout: 1回のリクエストのタイムアウト（呼び出し元から渡される）
//   - retries: 一時的な失敗に対する再試行回数（0 の場合は再試行しない）
//
// 注意:
//   - http.DefaultClientにはタイムアウトがないため、常にカスタムクライアントを使用すること
//   - Client.Timeout は再試行を含む全体に掛かるため、再試行時は各試行に per-attempt の期限を設定する
func NewHTTPClient(timeout time.Duration, retries int) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if retries <= 0 {
		return &http.Client{Timeout: timeout, Transport: t}
	}
	rt := NewRetryTransport(t, retries)
	rt.AttemptTimeout = timeout
	return &http.Client{Transport: rt}
}
