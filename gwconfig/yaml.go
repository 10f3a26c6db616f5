package gwconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relaygate/gateway/core"
)

// FromYAML overlays a YAML document onto cfg, decoding with
// KnownFields(true) so a typo'd or stale key fails loudly instead of
// being silently ignored. Zero-value fields in the YAML leave cfg's existing
// value (from defaults/env) untouched only insofar as yaml.v3 itself
// does partial-struct decoding — a key explicitly present in the file
// always wins.
func FromYAML(cfg *GatewayConfig, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("gwconfig: decoding YAML overlay: %v: %w", err, core.ErrInvalidConfiguration)
	}
	return nil
}

// LoadYAMLFile reads path and applies it to cfg via FromYAML.
func LoadYAMLFile(cfg *GatewayConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("gwconfig: reading %s: %w", path, err)
	}
	return FromYAML(cfg, data)
}

// Load builds a GatewayConfig the way a long-running gateway process
// would: defaults, then environment variables, then an optional YAML
// overlay when yamlPath is non-empty. The CLI/file-watching concern of
// *where* yamlPath comes from is left to the caller — this is the
// library-level assembly step a CLI would call into.
func Load(yamlPath string, logger core.Logger) (*GatewayConfig, error) {
	cfg := DefaultGatewayConfig()
	cfg.LoadFromEnv(logger)
	if yamlPath != "" {
		if err := LoadYAMLFile(cfg, yamlPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
