// Package metrics defines the instrumentation surface of the roster engine.
package metrics

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Collector receives engine and transport measurements.
//
// Outcome values are OutcomeSuccess or a domain error kind name
// (see domain.KindName), so failures stay distinguishable per kind.
type Collector interface {
	// RecordAllocation observes one upload-and-allocate run.
	RecordAllocation(outcome string, seated, unseated int, seconds float64)
	// RecordMutation observes one roster operation (create, remove, replace, drop).
	RecordMutation(op, outcome string)
	// RecordCacheLookup observes a results cache lookup.
	RecordCacheLookup(hit bool)
	// RecordHTTPRequest observes one served request; route is the mux pattern, not the raw path.
	RecordHTTPRequest(method, route string, status int, seconds float64)
}
