package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"screener/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain takes the first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:443", "203.0.113.7"},
		{"real ip header", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:443", "198.51.100.4"},
		{"remote addr ipv4", nil, "192.0.2.1:51234", "192.0.2.1"},
		{"remote addr ipv6", nil, "[::1]:8080", "::1"},
		{"nothing known", nil, "", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIPFromRequest(r))
		})
	}
}

func TestFamily(t *testing.T) {
	assert.Equal(t, "", Family(""))
	assert.Equal(t, "Firefox 128",
		Family("Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"))
	assert.Equal(t, "bot",
		Family("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"))
}

func TestClientMetadata(t *testing.T) {
	var ip, ua, family string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
		family = requestcontext.UserAgentFamily(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/submit", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "203.0.113.7", ip)
	assert.Contains(t, ua, "Firefox/128.0")
	assert.Equal(t, "Firefox 128", family)
}
