package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AdvicePath is where the server exposes the advice endpoint.
const AdvicePath = "/api/financial-advice"

// Endpoint returns advice text for a request.
type Endpoint interface {
	Advise(ctx context.Context, req Request) (string, error)
}

// EndpointFunc adapts a function to the Endpoint interface.
type EndpointFunc func(ctx context.Context, req Request) (string, error)

func (f EndpointFunc) Advise(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// HTTPEndpoint calls the advice endpoint of a remote server.
type HTTPEndpoint struct {
	url    string
	client *http.Client
}

// NewHTTPEndpoint builds an endpoint for the server at baseURL. A nil client
// uses http.DefaultClient, which has no timeout.
func NewHTTPEndpoint(baseURL string, client *http.Client) *HTTPEndpoint {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEndpoint{
		url:    strings.TrimRight(strings.TrimSpace(baseURL), "/") + AdvicePath,
		client: client,
	}
}

func (e *HTTPEndpoint) Advise(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", &EndpointError{Kind: KindMalformed, Err: fmt.Errorf("marshal advice request: %w", err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return "", &EndpointError{Kind: KindNetwork, Err: fmt.Errorf("build advice request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	res, err := e.client.Do(httpReq)
	if err != nil {
		return "", &EndpointError{Kind: contextKind(ctx, KindNetwork), Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return "", &EndpointError{Kind: contextKind(ctx, KindNetwork), Status: res.StatusCode, Err: fmt.Errorf("read advice response: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := http.StatusText(res.StatusCode)
		var er ErrorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return "", &EndpointError{Kind: KindStatus, Status: res.StatusCode, Err: errors.New(msg)}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &EndpointError{Kind: KindMalformed, Status: res.StatusCode, Err: fmt.Errorf("decode advice response: %w", err)}
	}
	if strings.TrimSpace(out.Advice) == "" {
		return "", &EndpointError{Kind: KindEmpty, Status: res.StatusCode, Err: ErrEmptyAdvice}
	}
	return out.Advice, nil
}
