package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = strings.TrimPrefix(t.target, "http://")
	return t.base.RoundTrip(req)
}

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient("test-token", "noreply@example.com", "https://contacts.test/",
		WithHTTPClient(&http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}))
}

func TestSendVerification(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"MessageID": "test-id"}`))
	})

	if err := client.SendVerification(context.Background(), "alice@example.com", "abc123"); err != nil {
		t.Fatalf("send verification: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" || received.From != "noreply@example.com" {
		t.Errorf("To/From = %q/%q", received.To, received.From)
	}
	if !strings.Contains(received.HtmlBody, `href="https://contacts.test/api/users/verify/abc123"`) {
		t.Errorf("HtmlBody = %q, want verification link", received.HtmlBody)
	}
	if !strings.HasPrefix(received.TextBody, "Welcome!") {
		t.Errorf("TextBody = %q, want signup copy", received.TextBody)
	}
}

func TestSendVerificationReminder(t *testing.T) {
	var received postmarkEmail
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
	})

	if err := client.SendVerificationReminder(context.Background(), "alice@example.com", "abc123"); err != nil {
		t.Fatalf("send reminder: %v", err)
	}
	if !strings.Contains(received.TextBody, "didn't verify") {
		t.Errorf("TextBody = %q, want reminder copy", received.TextBody)
	}
	if !strings.Contains(received.TextBody, "/api/users/verify/abc123") {
		t.Errorf("TextBody = %q, want verification link", received.TextBody)
	}
}

func TestSendVerificationAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"ErrorCode": 300, "Message": "Invalid 'To' address"}`))
	})

	err := client.SendVerification(context.Background(), "alice@example.com", "abc123")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
	if !strings.Contains(err.Error(), "Invalid 'To' address") {
		t.Errorf("error = %v, want Postmark message", err)
	}
}

func TestSendVerificationNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://contacts.test")

	if err := client.SendVerification(context.Background(), "alice@example.com", "abc123"); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("token", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = false")
	}
}

func TestVerificationLink(t *testing.T) {
	c := NewClient("", "", "http://localhost:3000/")
	if got := c.VerificationLink("t1"); got != "http://localhost:3000/api/users/verify/t1" {
		t.Errorf("link = %q", got)
	}
}
