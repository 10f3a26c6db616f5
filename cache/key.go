package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/relaygate/gateway/model"
)

// normalizedKey hashes the parts of a request that determine whether
// two requests should hit the same cache entry: message role/text
// sequence, tool names, and routing strategy. Tenant/tag metadata and
// the caller-supplied request ID are excluded on purpose — two
// different callers asking the same question should share a cache
// entry.
func normalizedKey(req *model.Request) string {
	var sb strings.Builder
	for _, msg := range req.Messages {
		sb.WriteString(string(msg.Role))
		sb.WriteByte('\x1f')
		sb.WriteString(msg.Text())
		sb.WriteByte('\x1e')
	}
	for _, t := range req.Tools {
		sb.WriteString(t.Name)
		sb.WriteByte('\x1f')
	}
	sb.WriteString(string(req.Preferences.Strategy))

	sum := sha256.Sum256([]byte(sb.String()))
	return "gateway:cache:" + hex.EncodeToString(sum[:])
}
