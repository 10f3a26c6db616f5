package gwconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaygate/gateway/model"
	"github.com/relaygate/gateway/security"
)

func textRequest(text string) *model.Request {
	return &model.Request{
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.ContentBlock{{Type: "text", Text: text}}},
		},
	}
}

func TestBuildGuardDefaultsToBuiltinPatterns(t *testing.T) {
	cfg := DefaultGatewayConfig()
	g, err := cfg.BuildGuard()
	require.NoError(t, err)

	result := g.PreCheck(textRequest("Email me at john@example.com"))
	require.False(t, result.Blocked)
	require.NotNil(t, result.SanitizedRequest) // default action is mask
}

func TestBuildGuardSelectsNamedBuiltins(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.Security.PIIDetection.Patterns = []string{"email"}
	g, err := cfg.BuildGuard()
	require.NoError(t, err)
	require.Len(t, g.PII.Patterns, 1)
	require.Equal(t, security.PIITypeEmail, g.PII.Patterns[0].Type)
}

func TestBuildGuardCompilesCustomPattern(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.Security.PIIDetection.Patterns = []string{`api_key:\bsk-[a-zA-Z0-9]{16,}\b`}
	g, err := cfg.BuildGuard()
	require.NoError(t, err)

	result := g.PreCheck(textRequest("my key is sk-abcdefghijklmnop99"))
	require.NotNil(t, result.SanitizedRequest)
	require.Contains(t, result.SanitizedRequest.Messages[0].Content[0].Text, "[API_KEY_REDACTED]")
}

func TestBuildGuardRejectsBadPatternSpec(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.Security.PIIDetection.Patterns = []string{"notbuiltinandnocolon"}
	_, err := cfg.BuildGuard()
	require.Error(t, err)
}

func TestBuildGuardRejectsInvalidRegex(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.Security.OutputSanitization.Enabled = true
	cfg.Security.OutputSanitization.BlockedPatterns = []string{"("}
	_, err := cfg.BuildGuard()
	require.Error(t, err)
}

func TestBuildGuardWiresOutputSanitization(t *testing.T) {
	cfg := DefaultGatewayConfig()
	cfg.Security.OutputSanitization.Enabled = true
	cfg.Security.OutputSanitization.BlockedPatterns = []string{`(?i)internal-only`}
	g, err := cfg.BuildGuard()
	require.NoError(t, err)

	sanitized, warnings := g.Sanitize("this is INTERNAL-ONLY data")
	require.Equal(t, "this is [REDACTED] data", sanitized)
	require.Len(t, warnings, 1)
}
