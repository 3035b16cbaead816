package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhatsAppClient talks to the WhatsApp Business messaging HTTP API.
// The caller is responsible for the eligibility gate (verified number,
// channel enabled, consent, plan); this client only delivers.
type WhatsAppClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	stubMode   bool
}

// NewWhatsAppClient creates a WhatsApp dispatcher.
func NewWhatsAppClient(baseURL, apiKey string, stubMode bool) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		stubMode:   stubMode,
	}
}

// Send delivers one text message to a phone number.
func (c *WhatsAppClient) Send(ctx context.Context, msg WhatsAppMessage) Result {
	if c.stubMode {
		return Result{Success: true, Message: "stub: whatsapp accepted"}
	}

	reqBody := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                msg.To,
		"type":              "text",
		"text": map[string]string{
			"body": msg.Body,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Result{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return Result{Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Message: fmt.Sprintf("failed to execute request: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Result{Message: fmt.Sprintf("whatsapp provider returned status %d: %s", resp.StatusCode, string(body))}
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	msgID := ""
	if len(out.Messages) > 0 {
		msgID = out.Messages[0].ID
	}
	return Result{Success: true, Message: msgID}
}
