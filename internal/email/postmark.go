// Package email sends account verification mail through the Postmark HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const postmarkURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a Postmark server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

// VerificationLink is the URL a new account follows to confirm its email.
func (c *Client) VerificationLink(token string) string {
	return c.baseURL + "/api/users/verify/" + token
}

type message struct {
	subject string
	text    string
	html    string
}

func verificationMessage(link string) message {
	return message{
		subject: "Verify your email",
		text:    "Welcome! Please verify your email by opening the link below:\n\n" + link,
		html:    fmt.Sprintf(`<p>Welcome! Please verify your email by clicking the following link:</p><p><a target="_blank" href="%s">Verify Your Email</a></p>`, link),
	}
}

func reminderMessage(link string) message {
	return message{
		subject: "Verify your email",
		text:    "It seems you didn't verify your email yet. Please open the link below:\n\n" + link,
		html:    fmt.Sprintf(`<p>It seems you didn't verify your email. Please verify your email by clicking the following link:</p><p><a target="_blank" href="%s">Verify Your Email</a></p>`, link),
	}
}

// SendVerification emails the verification link sent at signup.
func (c *Client) SendVerification(ctx context.Context, toEmail, token string) error {
	return c.send(ctx, toEmail, verificationMessage(c.VerificationLink(token)))
}

// SendVerificationReminder emails the pending link again for an unverified account.
func (c *Client) SendVerificationReminder(ctx context.Context, toEmail, token string) error {
	return c.send(ctx, toEmail, reminderMessage(c.VerificationLink(token)))
}

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
}

type postmarkError struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

func (c *Client) send(ctx context.Context, toEmail string, m message) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(postmarkEmail{
		From:          c.fromEmail,
		To:            toEmail,
		Subject:       m.subject,
		HtmlBody:      m.html,
		TextBody:      m.text,
		MessageStream: "outbound",
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var pe postmarkError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &pe) == nil && pe.Message != "" {
			return fmt.Errorf("postmark API error: status %d, code %d: %s", resp.StatusCode, pe.ErrorCode, pe.Message)
		}
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}
	return nil
}
