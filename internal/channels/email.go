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

// EmailClient talks to the transactional email provider's HTTP API.
type EmailClient struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
	stubMode   bool
}

// NewEmailClient creates an email dispatcher. With stubMode enabled every
// send succeeds without touching the network.
func NewEmailClient(baseURL, apiKey, from string, stubMode bool) *EmailClient {
	return &EmailClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		stubMode:   stubMode,
	}
}

// Send delivers one email. Provider errors are folded into the Result.
func (c *EmailClient) Send(ctx context.Context, msg EmailMessage) Result {
	if c.stubMode {
		return Result{Success: true, Message: "stub: email accepted"}
	}

	reqBody := map[string]interface{}{
		"from":    c.from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTMLBody,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Result{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/emails", bytes.NewBuffer(jsonData))
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
		return Result{Message: fmt.Sprintf("email provider returned status %d: %s", resp.StatusCode, string(body))}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	return Result{Success: true, Message: out.ID}
}
