package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/fieldpos-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/fieldpos-backend/pkg/errors"
	"github.com/angelmondragon/fieldpos-backend/pkg/logger"
)

const maxResponseBytes = 16 << 20

var (
	errEndpointRequired = errors.New("erp endpoint is required")
	errLoggerRequired   = errors.New("erp logger is required")
)

// CallObserver receives one observation per remote call.
type CallObserver interface {
	ObserveCall(model, operation string, duration time.Duration, err error)
}

// Invoker issues a single remote call. *Client is the HTTP implementation.
type Invoker interface {
	Invoke(ctx context.Context, call Call) (json.RawMessage, error)
}

// ClientParams groups dependencies for the HTTP client.
type ClientParams struct {
	Config     config.ERPConfig
	Logger     *logger.Logger
	Metrics    CallObserver
	HTTPClient *http.Client
}

// Client speaks the ERP's JSON RPC envelope over a single HTTP endpoint. It never retries.
type Client struct {
	httpClient      *http.Client
	endpoint        string
	protocolVersion string
	apiKey          string
	callTimeout     time.Duration
	logger          *logger.Logger
	metrics         CallObserver
	seq             atomic.Int64
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	ID      int64     `json:"id"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Model  string         `json:"model"`
	Method string         `json:"method"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient validates the configuration and builds the gateway transport.
func NewClient(params ClientParams) (*Client, error) {
	if params.Logger == nil {
		return nil, errLoggerRequired
	}
	endpoint := params.Config.Endpoint()
	if endpoint == "" {
		return nil, errEndpointRequired
	}
	version := strings.TrimSpace(params.Config.ProtocolVersion)
	if version == "" {
		version = "2.0"
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		httpClient:      httpClient,
		endpoint:        endpoint,
		protocolVersion: version,
		apiKey:          strings.TrimSpace(params.Config.APIKey),
		callTimeout:     params.Config.CallTimeout,
		logger:          params.Logger,
		metrics:         params.Metrics,
	}, nil
}

// Endpoint reports the RPC URL in use.
func (c *Client) Endpoint() string {
	if c == nil {
		return ""
	}
	return c.endpoint
}

// Invoke executes call and returns the raw result payload. Failures come back as a
// REMOTE_ERROR wrapping *RemoteError; callers must check every call.
func (c *Client) Invoke(ctx context.Context, call Call) (json.RawMessage, error) {
	method, err := call.RemoteMethod()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid erp call")
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	c.log(ctx, "request", call.Model, method, map[string]any{"args": len(call.Args)})
	start := time.Now()
	result, err := c.do(ctx, call, method)
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveCall(call.Model, string(call.Operation), elapsed, err)
	}
	if err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) {
			remote.Model = call.Model
			remote.Method = method
		}
		c.log(ctx, "error", call.Model, method, map[string]any{"error": err.Error(), "duration_ms": elapsed.Milliseconds()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemote, err, fmt.Sprintf("erp %s.%s failed", call.Model, method))
	}
	c.log(ctx, "response", call.Model, method, map[string]any{"duration_ms": elapsed.Milliseconds(), "bytes": len(result)})
	return result, nil
}

func (c *Client) do(ctx context.Context, call Call, method string) (json.RawMessage, error) {
	args := call.Args
	if args == nil {
		args = []any{}
	}
	kwargs := call.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: c.protocolVersion,
		Method:  "call",
		ID:      c.seq.Add(1),
		Params: rpcParams{
			Model:  call.Model,
			Method: method,
			Args:   args,
			Kwargs: kwargs,
		},
	})
	if err != nil {
		return nil, newTransportError(0, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, newTransportError(0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newTransportError(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newTransportError(resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		remote := newTransportError(resp.StatusCode, nil)
		remote.Message = http.StatusText(resp.StatusCode)
		if json.Valid(body) {
			remote.Data = body
		}
		return nil, remote
	}

	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, newTransportError(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if decoded.Error != nil {
		return nil, &RemoteError{
			Code:       decoded.Error.Code,
			Message:    decoded.Error.Message,
			Data:       decoded.Error.Data,
			HTTPStatus: resp.StatusCode,
		}
	}
	if len(decoded.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return decoded.Result, nil
}

func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok || c.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Client) log(ctx context.Context, phase, model, method string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"model":  model,
		"method": method,
		"phase":  phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Warn(ctx, fmt.Sprintf("erp %s.%s failed", model, method))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("erp %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"password", "token", "secret", "api_key", "apikey"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
