package ipaddr

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testOpts = ExtractOptions{Enabled: true}

func TestExtractClientIP_headers(t *testing.T) {
	r := httptest.NewRequest("POST", "/attendance/scan", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", ExtractClientIP(r, testOpts))
}

func TestExtractClientIP_forwardedChainTakesFirstHop(t *testing.T) {
	r := httptest.NewRequest("POST", "/attendance/scan", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", ExtractClientIP(r, testOpts))
}

func TestExtractClientIP_headerPriority(t *testing.T) {
	r := httptest.NewRequest("POST", "/attendance/scan", nil)
	r.Header.Set("X-Real-IP", "198.51.100.4")
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	// X-Forwarded-For が先勝ち
	assert.Equal(t, "203.0.113.7", ExtractClientIP(r, testOpts))
}

func TestExtractClientIP_placeholdersSkipped(t *testing.T) {
	r := httptest.NewRequest("POST", "/attendance/scan", nil)
	r.Header.Set("X-Forwarded-For", "unknown")
	r.Header.Set("X-Real-IP", "-")
	r.Header.Set("Proxy-Client-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", ExtractClientIP(r, testOpts))
}

func TestExtractClientIP_remoteAddrFallback(t *testing.T) {
	r := httptest.NewRequest("POST", "/attendance/scan", nil)
	r.RemoteAddr = "192.0.2.10:51234"
	assert.Equal(t, "192.0.2.10", ExtractClientIP(r, testOpts))
}

func TestExtractClientIP_ipv6RemoteAddr(t *testing.T) {
	r := httptest.NewRequest("POST", "/attendance/scan", nil)
	r.RemoteAddr = "[2001:db8::10]:51234"
	assert.Equal(t, "2001:db8::10", ExtractClientIP(r, testOpts))
}

func TestExtractClientIP_invalidEverywhere(t *testing.T) {
	r := httptest.NewRequest("POST", "/attendance/scan", nil)
	r.Header.Set("X-Forwarded-For", "not an ip")
	r.RemoteAddr = "garbage"
	assert.Equal(t, UnknownDefault, ExtractClientIP(r, testOpts))
}

func TestExtractClientIP_disabledOrNil(t *testing.T) {
	r := httptest.NewRequest("POST", "/attendance/scan", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, UnknownDefault, ExtractClientIP(r, ExtractOptions{Enabled: false}))
	assert.Equal(t, UnknownDefault, ExtractClientIP(nil, testOpts))
}
