package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// WithProfilingLabels runs fn with pprof labels attached, so CPU samples taken
// inside it can be filtered by label in Pyroscope. Keep label values low
// cardinality: route templates, not order ids.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// labelPairs flattens labels into sorted key/value pairs, dropping empty
// keys and values.
func labelPairs(labels map[string]string) []string {
	sanitized := make(map[string]string, len(labels))
	for k, v := range labels {
		if strings.TrimSpace(k) != "" && v != "" {
			sanitized[sanitizeLabelKey(k)] = v
		}
	}

	keys := make([]string, 0, len(sanitized))
	for k := range sanitized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, sanitized[k])
	}
	return pairs
}

// sanitizeLabelKey maps a key to the [a-z0-9_] set Pyroscope accepts
func sanitizeLabelKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(key))
}
