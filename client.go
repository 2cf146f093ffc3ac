// Package sdk is the machine-facing facade: a Client wraps a call bridge
// with the initialize, register, connect, update and shutdown surface a
// machine program drives.
//
//	client, _ := sdk.InitializeLibrary()
//	_ = client.SetName("calculator")
//	_ = client.RegisterFunction("multiply",
//		[][2]string{{"x", "int"}, {"y", "int"}},
//		[][2]string{{"product", "int"}},
//		multiply)
//	description, _ := client.ConnectToServer()
//	...
//	client.Enqueue(sdk.NewCall("multiply", entities.NewInt32(4), entities.NewInt32(5)))
//	results, _ := client.LibraryUpdate(ctx)
package sdk

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/errors"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
	"github.com/frontrow-dev/frontrow-sdk/host"
	"github.com/frontrow-dev/frontrow-sdk/hostfuncs"
	"github.com/frontrow-dev/frontrow-sdk/wireformat"
)

// Callback implements a registered function.
type Callback = entities.LocalFunc

type clientConfig struct {
	logger  *slog.Logger
	invoker ports.NativeInvoker
	format  wireformat.DescriptionFormat
	config  entities.Config
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithLogger sets the logger passed to the bridge.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConfig sets the SDK configuration. It is validated by InitializeLibrary.
func WithConfig(cfg entities.Config) ClientOption {
	return func(c *clientConfig) {
		c.config = cfg
	}
}

// WithDescriptionFormat selects the encoding returned by ConnectToServer.
func WithDescriptionFormat(f wireformat.DescriptionFormat) ClientOption {
	return func(c *clientConfig) {
		c.format = f
	}
}

// WithNativeInvoker lets the client register foreign functions.
func WithNativeInvoker(inv ports.NativeInvoker) ClientOption {
	return func(c *clientConfig) {
		c.invoker = inv
	}
}

// Client is a machine's handle on the SDK. It is safe for concurrent use.
type Client struct {
	bridge  *host.Bridge
	logger  *slog.Logger
	format  wireformat.DescriptionFormat
	pending []Call
	mu      sync.Mutex
}

// InitializeLibrary creates a client ready for SetName and RegisterFunction.
func InitializeLibrary(opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{
		logger: slog.Default(),
		format: wireformat.FormatJSON,
		config: entities.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if _, err := wireformat.ParseDescriptionFormat(string(cfg.format)); err != nil {
		return nil, &errors.ConfigError{Field: "description_format", Err: err}
	}

	bridgeOpts := []host.Option{
		host.WithLogger(cfg.logger),
		host.WithConfig(cfg.config),
	}
	if cfg.invoker != nil {
		bridgeOpts = append(bridgeOpts, host.WithNativeInvoker(cfg.invoker))
	}
	b := host.NewBridge(bridgeOpts...)
	if err := b.Initialize(); err != nil {
		return nil, err
	}
	return &Client{bridge: b, logger: cfg.logger, format: cfg.format}, nil
}

// SetName sets the machine name. It fails once the client is connected.
func (c *Client) SetName(name string) error {
	if name == "" {
		return &errors.ConfigError{Field: "name", Err: stdErrors.New("machine name is empty")}
	}
	return c.bridge.SetName(name)
}

// RegisterFunction registers a local function. Parameters and returns are
// {name, type} descriptors using the textual type names, e.g.
// {"values", "double[]"}.
func (c *Client) RegisterFunction(name string, parameters, returns [][2]string, fn Callback) error {
	sig, err := ParseSignature(name, parameters, returns)
	if err != nil {
		return err
	}
	return c.bridge.RegisterFunction(hostfuncs.Function{Name: name, Signature: sig, Fn: fn})
}

// RegisterForeign registers a function served by the configured native
// invoker under handle.
func (c *Client) RegisterForeign(name string, parameters, returns [][2]string, handle entities.Handle) error {
	sig, err := ParseSignature(name, parameters, returns)
	if err != nil {
		return err
	}
	return c.bridge.Register(name, sig, entities.Foreign(handle))
}

// RegisterBundle registers every function of bundle, or none of them.
func (c *Client) RegisterBundle(bundle hostfuncs.FunctionBundle) error {
	return c.bridge.RegisterBundle(bundle)
}

// ParseSignature converts {name, type} descriptors into a Signature.
func ParseSignature(function string, parameters, returns [][2]string) (entities.Signature, error) {
	params, err := parseDescriptors(function, "parameters", parameters)
	if err != nil {
		return entities.Signature{}, err
	}
	rets, err := parseDescriptors(function, "returns", returns)
	if err != nil {
		return entities.Signature{}, err
	}
	return entities.Signature{Parameters: params, Returns: rets}, nil
}

func parseDescriptors(function, list string, descriptors [][2]string) ([]entities.Parameter, error) {
	out := make([]entities.Parameter, 0, len(descriptors))
	for i, d := range descriptors {
		t, err := entities.ParseValueType(d[1])
		if err != nil {
			return nil, &errors.SignatureError{
				Function: function,
				Field:    fmt.Sprintf("%s[%d].type", list, i),
				Reason:   fmt.Sprintf("unsupported type %q", d[1]),
				Err:      err,
			}
		}
		out = append(out, entities.Parameter{Name: d[0], Type: t})
	}
	return out, nil
}

// ConnectToServer freezes the registered surface and returns the encoded
// machine description to send on connect. A name must have been set.
func (c *Client) ConnectToServer() ([]byte, error) {
	desc, err := c.bridge.Connect()
	if err != nil {
		return nil, err
	}
	return wireformat.MarshalDescription(desc, c.format)
}

// Call is a pending invocation received from the remote side.
type Call struct {
	Function string
	Args     []entities.Value
	ID       uuid.UUID
}

// NewCall returns a call with a fresh id.
func NewCall(function string, args ...entities.Value) Call {
	return Call{ID: uuid.New(), Function: function, Args: args}
}

// CallResult answers one Call. Error is nil on success.
type CallResult struct {
	Error    *ErrorDetail
	Function string
	Results  []entities.Value
	ID       uuid.UUID
}

// Enqueue queues calls for the next LibraryUpdate.
func (c *Client) Enqueue(calls ...Call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, calls...)
}

// Pending returns the number of queued calls.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// LibraryUpdate runs every queued call, in order, and returns one result per
// call. A failing call does not stop the batch; calls to unknown functions
// are answered as unsupported operations.
func (c *Client) LibraryUpdate(ctx context.Context) ([]CallResult, error) {
	if c.bridge.Phase() != entities.PhaseConnected {
		return nil, &errors.PhaseError{
			Operation: "update",
			Current:   c.bridge.Phase(),
			Required:  []entities.Phase{entities.PhaseConnected},
		}
	}

	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	results := make([]CallResult, 0, len(batch))
	for _, call := range batch {
		results = append(results, c.run(ctx, call))
	}
	return results, nil
}

func (c *Client) run(ctx context.Context, call Call) CallResult {
	res := CallResult{ID: call.ID, Function: call.Function}
	values, err := c.bridge.Invoke(ctx, call.Function, call.Args)
	if err == nil {
		res.Results = values
		return res
	}

	var unknown *errors.UnknownFunctionError
	if stdErrors.As(err, &unknown) {
		res.Error = &ErrorDetail{
			Message:    fmt.Sprintf("unsupported operation %q", call.Function),
			Type:       "unsupported",
			Code:       "unsupported_operation",
			IsNotFound: true,
		}
	} else {
		res.Error = ToErrorDetail(err)
	}
	c.logger.WarnContext(ctx, "call failed",
		slog.String("call_id", call.ID.String()),
		slog.String("function", call.Function),
		slog.String("error", res.Error.Error()))
	return res
}

// ListFunctions returns the registered function names in sorted order.
func (c *Client) ListFunctions() []string {
	return c.bridge.ListFunctions()
}

// Phase returns the client's lifecycle phase.
func (c *Client) Phase() entities.Phase {
	return c.bridge.Phase()
}

// Bridge exposes the underlying call bridge.
func (c *Client) Bridge() *host.Bridge {
	return c.bridge
}

// ShutdownLibrary drops queued calls, waits for running ones and releases
// every function. The client cannot be used afterwards.
func (c *Client) ShutdownLibrary(ctx context.Context) error {
	c.mu.Lock()
	dropped := len(c.pending)
	c.pending = nil
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.WarnContext(ctx, "dropping queued calls at shutdown", slog.Int("calls", dropped))
	}
	return c.bridge.Shutdown(ctx)
}
