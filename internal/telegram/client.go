// Package telegram is the chat transport: a Bot API client for outbound
// replies and the webhook handler for inbound updates. It owns no ledger
// logic; everything it does with a message is resolve the user, hand the text
// to the extractor and engine, and deliver the resulting reply.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// DefaultAPIBase is the production Bot API endpoint. Tests point the client
// at a local server instead.
const DefaultAPIBase = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client covering the two calls the bot
// makes: sendMessage and sendDocument.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
}

// NewClient creates a Bot API client. baseURL falls back to the production
// endpoint when empty.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
		baseURL:    baseURL,
	}
}

// SendMessage delivers a plain-text reply to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("SendMessage: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.methodURL("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("SendMessage: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "SendMessage")
}

// SendDocument delivers a file to a chat, with an optional caption.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("SendDocument: write chat_id: %w", err)
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return fmt.Errorf("SendDocument: write caption: %w", err)
		}
	}
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("SendDocument: create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("SendDocument: write document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("SendDocument: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.methodURL("sendDocument"), &body)
	if err != nil {
		return fmt.Errorf("SendDocument: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, "SendDocument")
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) do(req *http.Request, op string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: telegram returned %d: %s", op, resp.StatusCode, snippet)
	}
	return nil
}
