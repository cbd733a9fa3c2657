package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-avrocontract/pkg/schema"
)

// Interaction configuration keys. Everything else in the map is the literal.
const (
	KeySchema      = "pact:avro"
	KeyRecordName  = "pact:record-name"
	KeyContentType = "pact:content-type"

	reservedPrefix = "pact:"
)

// ParseConfig splits an interaction configuration into its schema reference,
// record name, content type and literal. Unknown pact: keys are rejected.
func ParseConfig(config map[string]any) (ConfigureRequest, error) {
	var (
		req     ConfigureRequest
		unknown []string
	)
	req.Literal = make(map[string]any, len(config))

	for key, raw := range config {
		if !strings.HasPrefix(key, reservedPrefix) {
			req.Literal[key] = raw
			continue
		}
		switch key {
		case KeySchema, KeyRecordName, KeyContentType:
		default:
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ConfigureRequest{}, fmt.Errorf("orchestrator: unsupported configuration keys %s", strings.Join(unknown, ", "))
	}

	ref, err := stringKey(config, KeySchema, true)
	if err != nil {
		return ConfigureRequest{}, err
	}
	src, err := schema.ParseSource(ref)
	if err != nil {
		return ConfigureRequest{}, fmt.Errorf("orchestrator: %s: %w", KeySchema, err)
	}
	req.Source = src

	if req.Record, err = stringKey(config, KeyRecordName, true); err != nil {
		return ConfigureRequest{}, err
	}
	if req.ContentType, err = stringKey(config, KeyContentType, false); err != nil {
		return ConfigureRequest{}, err
	}
	return req, nil
}

func stringKey(config map[string]any, key string, required bool) (string, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("orchestrator: configuration key %s is required", key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("orchestrator: configuration key %s must be a string, got %T", key, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" && required {
		return "", fmt.Errorf("orchestrator: configuration key %s is required", key)
	}
	return s, nil
}
