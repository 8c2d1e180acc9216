package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status       Status
	Checks       map[string]CheckResult
	IndexVersion uint64
	Documents    int
}

// Service coordinates health checks.
type Service struct {
	index IndexReader
	db    DBPinger
}

// New creates a Service. db can be nil when the index lives in memory.
func New(idx IndexReader, db DBPinger) *Service {
	return &Service{index: idx, db: db}
}

// Check runs health checks against all components.
// A failing index snapshot makes the service unhealthy; a failing database only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult)}

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			r.Checks["database"] = CheckError
			r.Status = Degraded
		} else {
			r.Checks["database"] = CheckOK
		}
	}

	snap, err := s.index.Snapshot(ctx)
	if err != nil {
		r.Checks["index"] = CheckError
		r.Status = Unhealthy
		return r
	}
	r.Checks["index"] = CheckOK
	r.IndexVersion = snap.Version()
	r.Documents = snap.Len()
	return r
}
