package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/bulkemail"
)

const defaultBaseURL = "https://api.sendgrid.com/v3"

var _ bulkemail.Sender = &Client{}

// HTTPClient is the slice of http.Client this backend needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	httpClient HTTPClient
	apiKey     string
	baseURL    string
}

func NewClient(httpClient HTTPClient, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
	}
}

func (c *Client) Send(ctx context.Context, m *bulkemail.Mail) error {
	if err := m.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(m)
	if err != nil {
		return bulkemail.NewUnknownError("failed to serialize mail", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return bulkemail.NewUnknownError("failed to build mail/send request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return bulkemail.NewUnknownError("failed to reach the mail API", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return categorizeResponse(resp)
}

// apiErrorBody is the error shape the v3 API returns on non-2xx responses.
type apiErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

func categorizeResponse(resp *http.Response) error {
	detail := responseDetail(resp)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return bulkemail.NewRateLimitedError(detail, nil)
	case http.StatusUnauthorized, http.StatusForbidden:
		return bulkemail.NewUnverifiedDomainError(detail, nil)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return bulkemail.NewMessageRejectedError(detail, nil)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return bulkemail.NewServiceError(detail, nil)
	}

	return bulkemail.NewUnknownError(detail, nil)
}

func responseDetail(resp *http.Response) string {
	detail := fmt.Sprintf("mail API responded with HTTP %d", resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return detail
	}

	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Errors) == 0 {
		return detail
	}

	first := body.Errors[0]
	if first.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", detail, first.Message, first.Field)
	}
	return fmt.Sprintf("%s: %s", detail, first.Message)
}
