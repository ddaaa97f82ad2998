package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"telegram-archivebot/internal/store"
	"telegram-archivebot/internal/store/storetest"
	"telegram-archivebot/internal/web"
)

const archiveChannel = int64(-1001234567890)

type echoShortener struct{}

func (echoShortener) Shorten(_ context.Context, u string) string { return u }

// newTestServer поднимает httptest.Server поверх роутинга резолвера.
func newTestServer(t *testing.T, mem *storetest.MemStore) *httptest.Server {
	t.Helper()

	srv := web.NewServer("127.0.0.1:0", mem, echoShortener{}, archiveChannel)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// get выполняет запрос без следования редиректам, чтобы проверять 302-ответ.
func get(t *testing.T, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestResolveSingle(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	if err := mem.Insert(context.Background(), store.ContentRecord{
		Code: "abc123", Kind: store.KindSingle, MessageID: 42,
	}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	ts := newTestServer(t, mem)

	resp := get(t, ts.URL+"/abc123")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if got, want := resp.Header.Get("Location"), "https://t.me/c/1234567890/42"; got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func TestResolveBatch(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	if err := mem.Insert(context.Background(), store.ContentRecord{
		Code: "xyz789", Kind: store.KindBatch, FirstID: 100, LastID: 105,
	}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	ts := newTestServer(t, mem)

	resp := get(t, ts.URL+"/xyz789")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if got, want := resp.Header.Get("Location"), "https://t.me/c/1234567890/100-105"; got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func TestResolveInvalid(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	if err := mem.Insert(context.Background(), store.ContentRecord{
		Code: "abc123", Kind: store.KindSingle, MessageID: 42,
	}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	ts := newTestServer(t, mem)

	cases := []struct {
		name string
		path string
	}{
		{"unknown code", "/zzzzzz"},
		{"too short", "/abc"},
		{"uppercase", "/ABC123"},
		{"root", "/"},
		{"nested path", "/abc123/extra"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp := get(t, ts.URL+tc.path)
			if resp.StatusCode != http.StatusNotFound {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if got := string(body); got != "Invalid shortlink!" {
				t.Fatalf("body = %q, want %q", got, "Invalid shortlink!")
			}
		})
	}
}

func TestResolveStoreFailureMasked(t *testing.T) {
	t.Parallel()

	mem := storetest.New()
	mem.FailRead = io.ErrUnexpectedEOF
	ts := newTestServer(t, mem)

	resp := get(t, ts.URL+"/abc123")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestResolveMethodNotAllowed(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, storetest.New())

	resp, err := http.Post(ts.URL+"/abc123", "text/plain", strings.NewReader(""))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, storetest.New())

	resp := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
