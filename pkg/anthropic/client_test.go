package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestEstimateCost_KnownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}
	// 1M input at $3 + 0.5M output at $15.
	assert.InDelta(t, 3.0+7.5, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
}

func TestEstimateCost_CacheWeighting(t *testing.T) {
	u := TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	}
	// Writes bill at 1.25x input, reads at 0.1x.
	assert.InDelta(t, 3.0*1.25+3.0*0.1, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000}
	assert.Zero(t, u.EstimateCost("not-a-model"))
}

func TestTokenUsage_Add(t *testing.T) {
	a := TokenUsage{InputTokens: 10, OutputTokens: 5, CacheReadInputTokens: 2}
	b := TokenUsage{InputTokens: 1, OutputTokens: 1, CacheCreationInputTokens: 3}
	sum := a.Add(b)
	assert.Equal(t, TokenUsage{
		InputTokens:              11,
		OutputTokens:             6,
		CacheCreationInputTokens: 3,
		CacheReadInputTokens:     2,
	}, sum)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "SELECT "},
		{Type: "thinking", Text: "ignored"},
		{Type: "text", Text: "1"},
	}}
	assert.Equal(t, "SELECT 1", resp.Text())
}

func TestToSDKMessages_RoleMapping(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "", Content: "fallback"},
	})
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[2].Role)
}

func TestToSDKSystemBlocks_CacheControl(t *testing.T) {
	blocks := toSDKSystemBlocks(BuildCachedSystemBlocks("schema"))
	assert.Equal(t, "schema", blocks[0].Text)
	assert.Equal(t, "1h", blocks[0].CacheControl.ExtraFields()["ttl"])
}
