// Package whatsapp is the outbound messaging gateway: a thin client for the
// Meta Graph API text-message endpoint.
package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	applog "orderbot/internal/log"
)

type Client struct {
	http          *http.Client
	baseURL       string
	token         string
	phoneNumberID string
}

func NewClient(baseURL, token, phoneNumberID string) *Client {
	return &Client{
		http:          &http.Client{Timeout: 10 * time.Second},
		baseURL:       baseURL,
		token:         token,
		phoneNumberID: phoneNumberID,
	}
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// Send posts one text message. The caller never retries; provider-side
// delivery semantics are the platform's concern once the API accepts it.
func (c *Client) Send(to, body string) error {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Text:             textBody{Body: body},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp send: status %d: %s", resp.StatusCode, respBody)
	}
	applog.Info(nil, "whatsapp.sent", map[string]any{"to": to, "status": resp.StatusCode})
	return nil
}
