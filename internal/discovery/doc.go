// internal/discovery/doc.go

// Package discovery provides the business boundary for Tandem's target
// discovery pipeline. It defines the Service (submission, lifecycle, async
// dispatch), Engine (plan, concurrent gathering, fusion, deferred
// verification), Store interface (persistence), the evidence fusion pool,
// and the domain models.
package discovery
