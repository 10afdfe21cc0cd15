package ipaddr

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// プロキシ経由のクライアントIPを探すヘッダ（優先順）
var headerCandidates = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_X_FORWARDED_FOR",
	"HTTP_X_FORWARDED",
	"HTTP_X_CLUSTER_CLIENT_IP",
	"HTTP_CLIENT_IP",
	"HTTP_FORWARDED_FOR",
	"HTTP_FORWARDED",
	"HTTP_VIA",
}

// ExtractOptions: 取得の有効/無効と所要時間の上限
type ExtractOptions struct {
	Enabled        bool
	CaptureTimeout time.Duration
}

// ExtractClientIP: リクエストからクライアントIPを取り出す。
// 失敗してもエラーは返さず UnknownDefault に落とす（スキャン処理を止めない）。
func ExtractClientIP(r *http.Request, opts ExtractOptions) string {
	if r == nil || !opts.Enabled {
		return UnknownDefault
	}

	start := time.Now()
	deadline := opts.CaptureTimeout
	if deadline <= 0 {
		deadline = 100 * time.Millisecond
	}

	for _, header := range headerCandidates {
		if time.Since(start) > deadline {
			return UnknownDefault
		}
		v := r.Header.Get(header)
		if isPlaceholder(v) {
			continue
		}
		// X-Forwarded-For は "client, proxy1, proxy2" 形式。先頭ホップのみ採用。
		if idx := strings.IndexByte(v, ','); idx >= 0 {
			v = v[:idx]
		}
		v = strings.TrimSpace(v)
		if IsValid(v) {
			return Format(v)
		}
	}

	// 直結のリモートアドレスへフォールバック（host:port形式を想定）
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	remote = strings.Trim(remote, "[]")
	if IsValid(remote) {
		return Format(remote)
	}
	return UnknownDefault
}

// プレースホルダ値（プロキシが詰める "unknown" 等）は不在とみなす
func isPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || v == "-" {
		return true
	}
	return strings.EqualFold(v, "unknown") || strings.EqualFold(v, "null")
}
