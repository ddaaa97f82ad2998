package shortener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func testProvider(endpoint string) *httpProvider {
	return &httpProvider{
		name:     "test",
		endpoint: endpoint,
		client:   &http.Client{Timeout: 2 * time.Second},
	}
}

func TestProviderSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://example.org/abc123" {
			t.Errorf("provider received url %q", got)
		}
		_, _ = w.Write([]byte("https://tiny.test/xyz\n"))
	}))
	defer srv.Close()

	p := testProvider(srv.URL + "?url=%s")
	got := p.Shorten(context.Background(), "https://example.org/abc123")
	if got != "https://tiny.test/xyz" {
		t.Fatalf("Shorten() = %q, want %q", got, "https://tiny.test/xyz")
	}
}

func TestProviderDegradesToIdentity(t *testing.T) {
	t.Parallel()

	const long = "https://example.org/abc123"

	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "serverError",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "emptyBody",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(""))
			},
		},
		{
			name: "garbageBody",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("Error: quota exceeded"))
			},
		},
		{
			name: "relativeURL",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("/xyz"))
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p := testProvider(srv.URL + "?url=%s")
			if got := p.Shorten(context.Background(), long); got != long {
				t.Fatalf("Shorten() = %q, want identity %q", got, long)
			}
		})
	}
}

func TestProviderNetworkFailure(t *testing.T) {
	t.Parallel()

	const long = "https://example.org/abc123"

	// Закрытый сервер гарантирует connection refused. Результат обязан быть
	// корректным URL во всех случаях — контракт identity fallback.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	p := testProvider(srv.URL + "?url=%s")
	for i := 0; i < 10; i++ {
		got := p.Shorten(context.Background(), long)
		if got != long {
			t.Fatalf("Shorten() = %q, want identity %q", got, long)
		}
		if u, err := url.Parse(got); err != nil || u.Scheme == "" || u.Host == "" {
			t.Fatalf("Shorten() returned malformed URL %q", got)
		}
	}
}

func TestChainFallsBackToSecondary(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("https://backup.test/abc"))
	}))
	defer working.Close()

	c := &chain{providers: []Shortener{
		testProvider(broken.URL + "?url=%s"),
		testProvider(working.URL + "?url=%s"),
	}}
	got := c.Shorten(context.Background(), "https://example.org/abc123")
	if got != "https://backup.test/abc" {
		t.Fatalf("chain Shorten() = %q, want secondary result", got)
	}
}

func TestChainAllBrokenReturnsIdentity(t *testing.T) {
	t.Parallel()

	const long = "https://example.org/abc123"

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	c := &chain{providers: []Shortener{
		testProvider(broken.URL + "?url=%s"),
		testProvider(broken.URL + "?url=%s"),
	}}
	if got := c.Shorten(context.Background(), long); got != long {
		t.Fatalf("chain Shorten() = %q, want identity %q", got, long)
	}
}

func TestLooksLikeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want bool
	}{
		{name: "https", in: "https://tiny.test/xyz", want: true},
		{name: "http", in: "http://tiny.test/xyz", want: true},
		{name: "empty", in: "", want: false},
		{name: "relative", in: "/xyz", want: false},
		{name: "noHost", in: "https://", want: false},
		{name: "withSpaces", in: "https://tiny.test/x z", want: false},
		{name: "plainText", in: "Error: quota exceeded", want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := looksLikeURL(tc.in); got != tc.want {
				t.Fatalf("looksLikeURL(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
