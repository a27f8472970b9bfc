package runner

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucasjones/reggen"
	"github.com/volleyhq/volley/pkg/models"
)

// BuildPayload resolves the configured body template into the concrete
// key/value payload for one request. With no per-field specs the static
// template passes through verbatim. Each field spec is resolved
// independently: a random field whose value parses as a non-empty JSON
// array yields one element chosen uniformly per request; anything else
// keeps its configured value, with {{...}} placeholders expanded.
func BuildPayload(cfg *models.TestConfig) map[string]string {
	if len(cfg.BodyFields) > 0 {
		payload := make(map[string]string, len(cfg.BodyFields))
		for _, f := range cfg.BodyFields {
			payload[f.Key] = resolveField(f)
		}
		return payload
	}

	if len(cfg.RequestBody) == 0 {
		return nil
	}
	payload := make(map[string]string, len(cfg.RequestBody))
	for k, v := range cfg.RequestBody {
		payload[k] = expandPlaceholders(v)
	}
	return payload
}

func resolveField(f models.BodyField) string {
	if f.IsRandom {
		if candidates := parseCandidates(f.Value); len(candidates) > 0 {
			return candidates[rand.IntN(len(candidates))]
		}
	}
	return expandPlaceholders(f.Value)
}

// parseCandidates parses a JSON array literal into its elements'
// string forms. A value that is not a non-empty array yields nil, and
// the field falls back to its configured value unchanged.
func parseCandidates(value string) []string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "[") {
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil || len(raw) == 0 {
		return nil
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		if s, ok := v.(string); ok {
			out[i] = s
		} else {
			out[i] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// expandPlaceholders replaces {{name}} references with generated
// values, letting one configuration drive varied synthetic load.
// Unknown names keep their placeholder so misconfigurations stay
// visible in the recorded request data.
func expandPlaceholders(input string) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	var sb strings.Builder
	remaining := input
	for {
		start := strings.Index(remaining, "{{")
		if start == -1 {
			sb.WriteString(remaining)
			break
		}
		end := strings.Index(remaining[start:], "}}")
		if end == -1 {
			sb.WriteString(remaining)
			break
		}
		end += start
		sb.WriteString(remaining[:start])
		sb.WriteString(generate(strings.TrimSpace(remaining[start+2 : end])))
		remaining = remaining[end+2:]
	}
	return sb.String()
}

func generate(name string) string {
	switch name {
	case "uuid":
		return uuid.New().String()
	case "random_int":
		return fmt.Sprintf("%d", rand.IntN(100000))
	case "timestamp":
		return fmt.Sprintf("%d", time.Now().Unix())
	case "timestamp_ms":
		return fmt.Sprintf("%d", time.Now().UnixMilli())
	case "random_email":
		return fmt.Sprintf("user%d@example.com", rand.IntN(1000000))
	case "random_bool":
		if rand.IntN(2) == 0 {
			return "false"
		}
		return "true"
	case "iso8601":
		return time.Now().UTC().Format(time.RFC3339)
	}

	// {{regex:PATTERN}} draws a random string matching PATTERN.
	if pattern, ok := strings.CutPrefix(name, "regex:"); ok {
		if s, err := reggen.Generate(pattern, 10); err == nil {
			return s
		}
	}

	return "{{" + name + "}}"
}
