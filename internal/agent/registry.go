package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/aptomizer/core/internal/datafetcher"
	"github.com/aptomizer/core/internal/types"
	"github.com/aptomizer/core/internal/wallet"
)

// Tool result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CodeUnknown is the error code of tool failures without a more specific code.
const CodeUnknown = "UNKNOWN_ERROR"

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrAIWalletRequired, "AI_WALLET_NOT_FOUND"},
	{wallet.ErrInvalidAmount, "INVALID_AMOUNT"},
	{wallet.ErrInvalidRecipient, "INVALID_RECIPIENT"},
	{datafetcher.ErrMarketNotFound, "POOL_NOT_FOUND"},
	{datafetcher.ErrNoSwapQuote, "NO_SWAP_QUOTE"},
	{datafetcher.ErrInvalidAddress, "INVALID_ADDRESS"},
}

// Session is the per-request identity tools act for.
type Session struct {
	User          types.User
	WalletAddress string // wallet the user connected with, never used to sign
	AIWallet      *types.AIWallet
}

// Handler executes a tool call. A returned error is reported to the model as
// an error envelope, except ErrInvalidToolArguments which aborts the chat.
type Handler func(ctx context.Context, session Session, input json.RawMessage) (map[string]any, error)

// Tool is a named function the model can call.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
	Write       bool
	Handler     Handler
}

// Registry holds tools in registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) {
	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = tool
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ToAPITools converts the registry into model tool definitions.
func (r *Registry) ToAPITools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		schema := anthropic.ToolInputSchemaParam{Properties: tool.Schema["properties"]}
		if required, ok := tool.Schema["required"].([]string); ok {
			schema.Required = required
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}

// Execute runs the named tool and returns its JSON result envelope.
func (r *Registry) Execute(ctx context.Context, session Session, name string, input json.RawMessage) (result json.RawMessage, err error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTool, name)
	}

	defer func() {
		if p := recover(); p != nil {
			agentLogger.Error().Str("tool", name).Interface("panic", p).Msg("Tool panicked")
			result, err = nil, fmt.Errorf("%w: %s: %v", ErrToolExecution, name, p)
		}
	}()

	if len(input) == 0 || string(input) == "null" {
		input = json.RawMessage("{}")
	}

	out, err := tool.Handler(ctx, session, input)
	if errors.Is(err, ErrInvalidToolArguments) {
		agentLogger.Warn().Err(err).Str("tool", name).Msg("Tool called with invalid arguments")
		return nil, err
	}
	if err != nil {
		agentLogger.Warn().Err(err).Str("tool", name).Msg("Tool returned an error")
		out = ErrorResult(err)
	}

	result, err = json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrToolExecution, name, err)
	}
	return result, nil
}

// SuccessResult builds a success envelope from key/value fields.
func SuccessResult(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["status"] = StatusSuccess
	return out
}

// ErrorResult builds the error envelope for err.
func ErrorResult(err error) map[string]any {
	return map[string]any{
		"status":  StatusError,
		"message": err.Error(),
		"code":    ErrorCode(err),
	}
}

// ErrorCode returns the envelope code of err.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

// decodeInput unmarshals tool arguments into T.
func decodeInput[T any](input json.RawMessage) (T, error) {
	var args T
	if err := json.Unmarshal(input, &args); err != nil {
		return args, fmt.Errorf("%w: %w", ErrInvalidToolArguments, err)
	}
	return args, nil
}

func missingArgument(name string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidToolArguments, name)
}
