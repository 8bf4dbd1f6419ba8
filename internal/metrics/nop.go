package metrics

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when metrics are disabled.
type NopMetrics struct{}

var _ Collector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (n *NopMetrics) RecordAllocation(_ string, _, _ int, _ float64) {}

func (n *NopMetrics) RecordMutation(_, _ string) {}

func (n *NopMetrics) RecordCacheLookup(_ bool) {}

func (n *NopMetrics) RecordHTTPRequest(_, _ string, _ int, _ float64) {}
