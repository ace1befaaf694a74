package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient_NoClientTimeout(t *testing.T) {
	t.Parallel()

	c := NewHTTPClient("")
	assert.Zero(t, c.Timeout, "deadlines come from the request context")
}

func TestNewHTTPClient_UserAgent(t *testing.T) {
	t.Parallel()

	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	tests := []struct {
		name      string
		userAgent string
		header    string
		want      string
	}{
		{name: "default", want: DefaultUserAgent},
		{name: "configured", userAgent: "folio-test", want: "folio-test"},
		{name: "request header wins", userAgent: "folio-test", header: "custom/1.0", want: "custom/1.0"},
	}
	for _, tt := range tests {
		got = nil
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		if tt.header != "" {
			req.Header.Set("User-Agent", tt.header)
		}
		res, err := NewHTTPClient(tt.userAgent).Do(req)
		require.NoError(t, err, tt.name)
		_ = res.Body.Close()

		require.Len(t, got, 1, tt.name)
		assert.Equal(t, tt.want, got[0], tt.name)
		if tt.header == "" {
			assert.Empty(t, req.Header.Get("User-Agent"), "caller request is not modified")
		}
	}
}
