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

// Provider error codes that mean the device token is permanently dead.
// These trigger token cleanup instead of a plain failure log.
var invalidTokenCodes = map[string]bool{
	"NOT_REGISTERED":   true,
	"UNREGISTERED":     true,
	"INVALID_ARGUMENT": true,
}

// PushClient talks to the push provider's HTTP API, one request per
// (device token, deadline).
type PushClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	stubMode   bool
}

// NewPushClient creates a push dispatcher.
func NewPushClient(baseURL, apiKey string, stubMode bool) *PushClient {
	return &PushClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		stubMode:   stubMode,
	}
}

// Send delivers one push notification. InvalidToken is set when the
// provider reports the not-registered / invalid-token error class.
func (c *PushClient) Send(ctx context.Context, msg PushMessage) PushResult {
	if c.stubMode {
		return PushResult{Result: Result{Success: true, Message: "stub: push accepted"}}
	}

	reqBody := map[string]interface{}{
		"token": msg.Token,
		"notification": map[string]string{
			"title": msg.Title,
			"body":  msg.Body,
		},
		"link": msg.Link,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return PushResult{Result: Result{Message: fmt.Sprintf("failed to marshal request: %v", err)}}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages:send", bytes.NewBuffer(jsonData))
	if err != nil {
		return PushResult{Result: Result{Message: fmt.Sprintf("failed to create request: %v", err)}}
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PushResult{Result: Result{Message: fmt.Sprintf("failed to execute request: %v", err)}}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return PushResult{Result: Result{Success: true}}
	}

	body, _ := io.ReadAll(resp.Body)

	var provErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &provErr); err == nil && invalidTokenCodes[provErr.Error.Code] {
		return PushResult{
			Result:       Result{Message: fmt.Sprintf("token invalid: %s", provErr.Error.Code)},
			InvalidToken: true,
		}
	}

	return PushResult{Result: Result{Message: fmt.Sprintf("push provider returned status %d: %s", resp.StatusCode, string(body))}}
}
