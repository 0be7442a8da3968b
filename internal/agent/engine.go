/*

This file contains the chat engine: a tool loop over the Anthropic Messages API.

Each turn sends the conversation to the model, executes every tool_use block of
the reply through the registry and feeds the results back, until the model
answers without calling tools or the turn limit is reached.

*/

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
)

var (
	ErrNoSuchTool           = errors.New("no such tool")
	ErrInvalidToolArguments = errors.New("invalid tool arguments")
	ErrToolExecution        = errors.New("tool execution failed")
	ErrInvalidMessages      = errors.New("invalid chat messages")
	ErrMaxTurns             = errors.New("exceeded maximum turns")
	ErrModelRequest         = errors.New("model request failed")
)

// User facing messages of the chat error taxonomy.
const (
	MessageNoSuchTool           = "The model tried to call a unknown tool."
	MessageInvalidToolArguments = "The model called a tool with invalid arguments."
	MessageToolExecution        = "An error occurred during tool execution."
	MessageUnknown              = "An unknown error occurred."
)

// Chat event types.
const (
	EventText  = "text"
	EventTool  = "tool"
	EventError = "error"
	EventDone  = "done"
)

// ErrorMessage maps err to its user facing message.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoSuchTool):
		return MessageNoSuchTool
	case errors.Is(err, ErrInvalidToolArguments):
		return MessageInvalidToolArguments
	case errors.Is(err, ErrToolExecution):
		return MessageToolExecution
	default:
		return MessageUnknown
	}
}

// MessageCreator sends one request to the Messages API. *anthropic.MessageService satisfies it.
type MessageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Message is one turn of the conversation sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Event is streamed to the client while a chat runs.
type Event struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Tool   string          `json:"tool,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Emitter receives chat events in order.
type Emitter func(Event)

// Engine runs chats.
type Engine struct {
	client    MessageCreator
	tools     *Registry
	model     string
	maxTokens int64
	maxTurns  int
}

// EngineConfig holds the dependencies and limits of an Engine.
type EngineConfig struct {
	Client    MessageCreator
	Tools     *Registry
	Model     string
	MaxTokens int
	MaxTurns  int
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Client == nil {
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("message client cannot be nil"))
	}
	if cfg.Tools == nil {
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("tool registry cannot be nil"))
	}
	if cfg.Model == "" {
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("model cannot be empty"))
	}
	if cfg.MaxTokens <= 0 || cfg.MaxTurns <= 0 {
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("max tokens and max turns must be positive"))
	}
	return &Engine{
		client:    cfg.Client,
		tools:     cfg.Tools,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		maxTurns:  cfg.MaxTurns,
	}, nil
}

// Chat answers the conversation for session, emitting text and tool events
// followed by exactly one done or error event.
func (e *Engine) Chat(ctx context.Context, session Session, messages []Message, emit Emitter) error {
	requestID := uuid.New().String()
	log := agentLogger.With().Str("request_id", requestID).Str("user_id", session.User.ID).Logger()

	err := e.run(ctx, session, messages, emit)
	if err != nil {
		log.Error().Err(err).Msg("Chat failed")
		emit(Event{Type: EventError, Error: ErrorMessage(err)})
		return err
	}
	log.Debug().Msg("Chat completed")
	emit(Event{Type: EventDone})
	return nil
}

func (e *Engine) run(ctx context.Context, session Session, messages []Message, emit Emitter) error {
	history, err := toMessageParams(messages)
	if err != nil {
		return err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: e.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: SystemPrompt(session)}},
		Tools:     e.tools.ToAPITools(),
	}

	for turn := 0; turn < e.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		params.Messages = history
		resp, err := e.client.New(ctx, params)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrModelRequest, err)
		}

		var results []anthropic.ContentBlockParamUnion
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					emit(Event{Type: EventText, Text: block.Text})
				}
			case "tool_use":
				input, err := json.Marshal(block.Input)
				if err != nil {
					return fmt.Errorf("%w: %w", ErrInvalidToolArguments, err)
				}
				result, err := e.tools.Execute(ctx, session, block.Name, input)
				if err != nil {
					return err
				}
				emit(Event{Type: EventTool, Tool: block.Name, Input: input, Result: result})
				results = append(results, anthropic.NewToolResultBlock(block.ID, string(result), false))
			}
		}

		if len(results) == 0 {
			return nil
		}
		history = append(history, resp.ToParam(), anthropic.NewUserMessage(results...))
	}

	return fmt.Errorf("%w (%d)", ErrMaxTurns, e.maxTurns)
}

// toMessageParams converts client messages, which must end with a user turn.
func toMessageParams(messages []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	lastRole := ""
	for i, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(content)))
		default:
			return nil, fmt.Errorf("%w: message %d has role %q", ErrInvalidMessages, i, m.Role)
		}
		lastRole = m.Role
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no messages", ErrInvalidMessages)
	}
	// Blank messages are dropped, so check the last message actually sent.
	if lastRole != "user" {
		return nil, fmt.Errorf("%w: last message must be from the user", ErrInvalidMessages)
	}
	return out, nil
}
