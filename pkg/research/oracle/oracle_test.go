package oracle_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/randalmurphal/researchflow/pkg/research/config"
	"github.com/randalmurphal/researchflow/pkg/research/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type route struct {
	NextNode string `json:"next_node"`
}

func (route) Format() string { return `{"next_node": "a" | "b"}` }

func TestDecodeStructured(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"bare object", `{"next_node":"a"}`, "a", false},
		{"code fence", "```json\n{\"next_node\": \"b\"}\n```", "b", false},
		{"surrounding prose", `Sure! {"next_node":"a"} Hope that helps.`, "a", false},
		{"unknown fields ignored", `{"next_node":"a","confidence":0.2}`, "a", false},
		{"no object", "web search please", "", true},
		{"broken json", `{"next_node": }`, "", true},
		{"wrong type", `{"next_node": 3}`, "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r route
			err := oracle.DecodeStructured(tt.text, &r)
			if tt.wantErr {
				assert.ErrorIs(t, err, oracle.ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.NextNode)
		})
	}
}

// fakeChatModel records the messages it is given and replies from a script.
type fakeChatModel struct {
	mu    sync.Mutex
	reply *schema.Message
	err   error
	seen  [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, input)
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestChatOracle_Complete(t *testing.T) {
	fake := &fakeChatModel{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: "an answer",
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
		},
	}}
	o := oracle.NewChatOracle(fake, oracle.WithName("fake/model"))

	got, err := o.Complete(context.Background(), "be brief", "hello")
	require.NoError(t, err)
	assert.Equal(t, "an answer", got)

	require.Len(t, fake.seen, 1)
	require.Len(t, fake.seen[0], 2)
	assert.Equal(t, schema.System, fake.seen[0][0].Role)
	assert.Equal(t, "be brief", fake.seen[0][0].Content)
	assert.Equal(t, schema.User, fake.seen[0][1].Role)
	assert.Equal(t, "hello", fake.seen[0][1].Content)
}

func TestChatOracle_CompleteStructured(t *testing.T) {
	fake := &fakeChatModel{reply: schema.AssistantMessage(`{"next_node":"b"}`, nil)}
	o := oracle.NewChatOracle(fake)

	var r route
	require.NoError(t, o.CompleteStructured(context.Background(), "route it", "task", &r))
	assert.Equal(t, "b", r.NextNode)

	system := fake.seen[0][0].Content
	assert.Contains(t, system, "route it")
	assert.Contains(t, system, r.Format())
}

func TestChatOracle_Errors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		boom := errors.New("connection refused")
		o := oracle.NewChatOracle(&fakeChatModel{err: boom})

		_, err := o.Complete(context.Background(), "s", "u")
		assert.ErrorIs(t, err, boom)

		var r route
		err = o.CompleteStructured(context.Background(), "s", "u", &r)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, oracle.ErrMalformedOutput)
	})

	t.Run("nil message", func(t *testing.T) {
		o := oracle.NewChatOracle(&fakeChatModel{})
		_, err := o.Complete(context.Background(), "s", "u")
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		o := oracle.NewChatOracle(&fakeChatModel{reply: schema.AssistantMessage("no json here", nil)})
		var r route
		err := o.CompleteStructured(context.Background(), "s", "u", &r)
		assert.ErrorIs(t, err, oracle.ErrMalformedOutput)
	})

	t.Run("nil model panics", func(t *testing.T) {
		assert.Panics(t, func() { oracle.NewChatOracle(nil) })
	})
}

func TestNewChatModel(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		settings config.OracleSettings
		wantErr  bool
	}{
		{"openai", config.OracleSettings{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test", MaxTokens: 64}, false},
		{"ollama", config.OracleSettings{Provider: "ollama", Model: "llama3", BaseURL: "http://localhost:11434"}, false},
		{"unsupported", config.OracleSettings{Provider: "palm", Model: "bison"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := oracle.NewChatModel(ctx, tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}
