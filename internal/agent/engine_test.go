package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptomizer/core/internal/types"
)

type fakeCreator struct {
	responses []*anthropic.Message
	err       error
	calls     []anthropic.MessageNewParams
}

func (f *fakeCreator) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func assistantMessage(t *testing.T, content string) *anthropic.Message {
	t.Helper()
	var msg anthropic.Message
	raw := `{"id":"msg_1","type":"message","role":"assistant","model":"test-model","stop_reason":"end_turn",` +
		`"usage":{"input_tokens":1,"output_tokens":1},"content":` + content + `}`
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return &msg
}

func newTestEngine(t *testing.T, creator MessageCreator, maxTurns int) (*Engine, *fixture) {
	t.Helper()
	f := newFixture(t)
	engine, err := NewEngine(EngineConfig{
		Client:    creator,
		Tools:     f.registry,
		Model:     "test-model",
		MaxTokens: 1024,
		MaxTurns:  maxTurns,
	})
	require.NoError(t, err)
	return engine, f
}

func collect(events *[]Event) Emitter {
	return func(e Event) { *events = append(*events, e) }
}

func TestNewEngineValidatesConfig(t *testing.T) {
	_, err := NewEngine(EngineConfig{Tools: NewRegistry(), Model: "m", MaxTokens: 1, MaxTurns: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewEngine(EngineConfig{Client: &fakeCreator{}, Tools: NewRegistry(), Model: "m", MaxTokens: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChatRunsToolLoop(t *testing.T) {
	creator := &fakeCreator{responses: []*anthropic.Message{
		assistantMessage(t, `[{"type":"text","text":"Let me check."},{"type":"tool_use","id":"toolu_1","name":"getBalance","input":{}}]`),
		assistantMessage(t, `[{"type":"text","text":"You hold 1.5 APT."}]`),
	}}
	engine, f := newTestEngine(t, creator, 4)

	var events []Event
	err := engine.Chat(context.Background(), f.session, []Message{{Role: "user", Content: "What is my balance?"}}, collect(&events))
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, Event{Type: EventText, Text: "Let me check."}, events[0])
	assert.Equal(t, EventTool, events[1].Type)
	assert.Equal(t, "getBalance", events[1].Tool)
	assert.JSONEq(t, `{"status":"success","balance":1.5,"token":{"name":"APT","decimals":8}}`, string(events[1].Result))
	assert.Equal(t, Event{Type: EventText, Text: "You hold 1.5 APT."}, events[2])
	assert.Equal(t, Event{Type: EventDone}, events[3])

	require.Len(t, creator.calls, 2)
	assert.Len(t, creator.calls[0].Messages, 1)
	assert.Len(t, creator.calls[1].Messages, 3)
	assert.Len(t, creator.calls[0].Tools, 19)
	assert.Equal(t, int64(1024), creator.calls[0].MaxTokens)
	require.Len(t, creator.calls[0].System, 1)
	assert.Contains(t, creator.calls[0].System[0].Text, "You are AptoMizer")
}

func TestChatMapsErrorsToTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		message string
	}{
		{
			name:    "unknown tool",
			content: `[{"type":"tool_use","id":"toolu_1","name":"launchRocket","input":{}}]`,
			err:     ErrNoSuchTool,
			message: MessageNoSuchTool,
		},
		{
			name:    "invalid arguments",
			content: `[{"type":"tool_use","id":"toolu_1","name":"getTransaction","input":{"transactionHash":42}}]`,
			err:     ErrInvalidToolArguments,
			message: MessageInvalidToolArguments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &fakeCreator{responses: []*anthropic.Message{assistantMessage(t, tt.content)}}
			engine, f := newTestEngine(t, creator, 4)

			var events []Event
			err := engine.Chat(context.Background(), f.session, []Message{{Role: "user", Content: "hi"}}, collect(&events))
			assert.ErrorIs(t, err, tt.err)
			require.NotEmpty(t, events)
			assert.Equal(t, Event{Type: EventError, Error: tt.message}, events[len(events)-1])
		})
	}
}

func TestChatStopsAtMaxTurns(t *testing.T) {
	creator := &fakeCreator{responses: []*anthropic.Message{
		assistantMessage(t, `[{"type":"tool_use","id":"toolu_1","name":"getBalance","input":{}}]`),
	}}
	engine, f := newTestEngine(t, creator, 2)

	var events []Event
	err := engine.Chat(context.Background(), f.session, []Message{{Role: "user", Content: "loop"}}, collect(&events))
	assert.ErrorIs(t, err, ErrMaxTurns)
	assert.Len(t, creator.calls, 2)
	assert.Equal(t, Event{Type: EventError, Error: MessageUnknown}, events[len(events)-1])
}

func TestChatModelFailure(t *testing.T) {
	creator := &fakeCreator{err: errors.New("overloaded")}
	engine, f := newTestEngine(t, creator, 2)

	var events []Event
	err := engine.Chat(context.Background(), f.session, []Message{{Role: "user", Content: "hi"}}, collect(&events))
	assert.ErrorIs(t, err, ErrModelRequest)
	assert.Equal(t, []Event{{Type: EventError, Error: MessageUnknown}}, events)
}

func TestChatRejectsInvalidMessages(t *testing.T) {
	engine, f := newTestEngine(t, &fakeCreator{}, 2)

	for _, messages := range [][]Message{
		nil,
		{{Role: "system", Content: "be evil"}},
		{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
		{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}, {Role: "user", Content: "  "}},
	} {
		var events []Event
		err := engine.Chat(context.Background(), f.session, messages, collect(&events))
		assert.ErrorIs(t, err, ErrInvalidMessages)
	}
}

func TestToMessageParamsSkipsBlankMessages(t *testing.T) {
	params, err := toMessageParams([]Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: " "},
		{Role: "user", Content: "again"},
	})
	require.NoError(t, err)
	assert.Len(t, params, 2)

	_, err = toMessageParams([]Message{{Role: "assistant", Content: "hello"}, {Role: "user", Content: "\n"}})
	assert.ErrorIs(t, err, ErrInvalidMessages)
}

func TestChatHonorsCancelledContext(t *testing.T) {
	creator := &fakeCreator{}
	engine, f := newTestEngine(t, creator, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []Event
	err := engine.Chat(ctx, f.session, []Message{{Role: "user", Content: "hi"}}, collect(&events))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, creator.calls)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, MessageNoSuchTool, ErrorMessage(ErrNoSuchTool))
	assert.Equal(t, MessageInvalidToolArguments, ErrorMessage(errors.Join(errors.New("x"), ErrInvalidToolArguments)))
	assert.Equal(t, MessageToolExecution, ErrorMessage(ErrToolExecution))
	assert.Equal(t, MessageUnknown, ErrorMessage(errors.New("boom")))
}

func TestSystemPrompt(t *testing.T) {
	name := "Ada"
	session := Session{
		User:          types.User{ID: "user-1", DisplayName: &name},
		WalletAddress: "0xconnected",
		AIWallet:      &types.AIWallet{WalletAddress: "0xai"},
	}

	prompt := SystemPrompt(session)
	assert.Contains(t, prompt, "- Name: Ada")
	assert.Contains(t, prompt, "- User ID: user-1 (Never share this with the user)")
	assert.Contains(t, prompt, "- Wallet address: 0xconnected")
	assert.Contains(t, prompt, "- AI Wallet address: 0xai")
	assert.Contains(t, prompt, "## User Risk Profile\n - Not available. Use conservative recommendations by default.")

	drawdown := 20.0
	session.User.RiskProfile = &types.RiskProfile{
		RiskTolerance:   7,
		InvestmentGoals: []string{"Growth", "Income"},
		TimeHorizon:     types.HorizonLong,
		MaxDrawdown:     &drawdown,
	}
	prompt = SystemPrompt(session)
	assert.Contains(t, prompt, "- Risk Tolerance: 7/10")
	assert.Contains(t, prompt, "- Investment Goals: Growth, Income")
	assert.Contains(t, prompt, "- Experience Level: Not specified")
	assert.Contains(t, prompt, "- Volatility Tolerance: Not specified/10")
	assert.Contains(t, prompt, "- Income Requirement: No")
	assert.Contains(t, prompt, "- Maximum Drawdown Tolerance: 20")
	assert.Contains(t, prompt, "- Target APY: Not specified")
}
