package opensubtitles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	coreErrors "github.com/MeetLima/osdbinfos/pkg/core/errors"
	xmlrpc "github.com/kolo/xmlrpc"
)

// Caller invokes a remote method and returns its struct reply.
//
// Implementations must report failures with the transport sentinels of
// pkg/core/errors: ErrTimeout when ctx expires or the connection times out,
// ErrServiceUnavailable for HTTP 503, ErrNetwork for other connection
// failures and ErrService for anything the server answered but could not be
// used.
type Caller interface {
	Call(ctx context.Context, method string, args ...interface{}) (map[string]interface{}, error)
}

// XmlRpcTransport is a Caller speaking XML-RPC over HTTP.
type XmlRpcTransport struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewXmlRpcTransport creates a transport for endpoint. A nil httpClient uses
// http.DefaultClient.
func NewXmlRpcTransport(endpoint, userAgent string, httpClient *http.Client) (*XmlRpcTransport, error) {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint provided: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &XmlRpcTransport{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: httpClient,
	}, nil
}

// Call implements Caller.
func (t *XmlRpcTransport) Call(ctx context.Context, method string, args ...interface{}) (map[string]interface{}, error) {
	body, err := xmlrpc.EncodeMethodCall(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode %s request: %w", coreErrors.ErrService, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create %s request: %w", coreErrors.ErrNetwork, method, err)
	}
	req.Header.Set("Content-Type", "text/xml")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("%w: %s: HTTP %d", coreErrors.ErrServiceUnavailable, method, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: HTTP %d %s", coreErrors.ErrService, method, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, method, err)
	}

	xmlResp := xmlrpc.Response(data)
	if err := xmlResp.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", coreErrors.ErrService, method, err)
	}

	var raw interface{}
	if err := xmlResp.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %w", coreErrors.ErrService, method, err)
	}
	reply, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected %s response type: %T", coreErrors.ErrService, method, raw)
	}
	return reply, nil
}

// transportError maps a failed round trip to ErrTimeout or ErrNetwork,
// keeping the original error in the chain.
func transportError(ctx context.Context, method string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", coreErrors.ErrTimeout, method, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s: %w", coreErrors.ErrTimeout, method, err)
	default:
		return fmt.Errorf("%w: %s: %w", coreErrors.ErrNetwork, method, err)
	}
}
