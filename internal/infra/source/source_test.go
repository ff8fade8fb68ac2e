package source

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/marketetl/internal/infra/httpclient"
)

// serve answers every request with body and records the last request URL.
func serve(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var last string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = r.URL.String()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func testClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{Retry: httpclient.RetryConfig{MaxRetries: 0}})
}
