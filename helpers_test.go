package secretkeep_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"testing"

	sk "github.com/secretkeep/secretkeep"
)

// newCookieClient returns an HTTP client with a cookie jar, so session and
// auth token cookies survive across requests like they would in a browser.
func newCookieClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

// newNoRedirectClient returns a cookie-jar client that stops at the first
// redirect, so tests can assert on Location headers.
func newNoRedirectClient(t *testing.T) *http.Client {
	client := newCookieClient(t)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}

func mustGet(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

// contextWithSession loads an empty scs session into the request context, as
// the LoadAndSave middleware would for a cookieless request.
func contextWithSession(t *testing.T, m *sk.SessionManager, r *http.Request) context.Context {
	t.Helper()
	ctx, err := m.Session.Load(r.Context(), "")
	if err != nil {
		t.Fatalf("Failed to load session context: %v", err)
	}
	return ctx
}
