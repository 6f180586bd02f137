// Package security は外部URLとユーザー入力テキストの安全性を扱う。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// URLGuard は外部URLの検証と、SSRF防止付きHTTPクライアントの生成を行う。
// ストーリー投稿時のURL検証とフィード取り込み時の取得に使用する。
type URLGuard interface {
	// ValidateURL はDNS解決を伴わない静的な検証を行う。
	// 不正なURLはINVALID_URLエラーとして返す。
	ValidateURL(rawURL string) error

	// NewSafeClient はプライベートIP・ループバック・リンクローカルへの
	// 接続をDialer段階で拒否するHTTPクライアントを生成する。
	NewSafeClient(timeout time.Duration) *http.Client
}

var allowedSchemes = []string{"http", "https"}

// blockedNetworks は投稿・取り込みを拒否するネットワーク範囲。
var blockedNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16", // クラウドメタデータ 169.254.169.254 を含む
	"0.0.0.0/8",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
)

var blockedHostnames = map[string]struct{}{
	"localhost": {},
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR: %s: %v", cidr, err))
		}
		nets = append(nets, n)
	}
	return nets
}

type urlGuard struct{}

// NewURLGuard はURLGuardの新しいインスタンスを生成する。
func NewURLGuard() URLGuard {
	return urlGuard{}
}

// NewSafeClient はsafeurlでラップしたHTTPクライアントを返す。
// 接続先IPはDNS解決後に検証されるため、DNS再バインディングにも対応する。
func (urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はスキーム、ホスト、IPアドレスを静的に検証する。
func (urlGuard) ValidateURL(rawURL string) error {
	host, err := model.HostnameOf(rawURL)
	if err != nil {
		return err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.NewInvalidURLError(rawURL)
	}
	if !isAllowedScheme(parsed.Scheme) {
		return model.NewInvalidURLError(fmt.Sprintf("許可されていないスキームです: %s", parsed.Scheme))
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return model.NewInvalidURLError(fmt.Sprintf("許可されていないアドレスです: %s", ip))
		}
		return nil
	}

	if _, blocked := blockedHostnames[strings.ToLower(host)]; blocked {
		return model.NewInvalidURLError(fmt.Sprintf("許可されていないホストです: %s", host))
	}
	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, n := range blockedNetworks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
