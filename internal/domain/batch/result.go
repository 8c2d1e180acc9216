// Package batch reports per-document outcomes of a multi-document write.
package batch

// ItemStatus is the validation outcome of a single document in a write.
type ItemStatus string

// Item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome for one document, identified by its position and path.
type Result struct {
	index  int
	path   string
	status ItemStatus
	err    error
}

// Accepted creates the result of a valid document.
func Accepted(index int, path string) Result {
	return Result{index: index, path: path, status: StatusOK}
}

// Rejected creates the result of an invalid document.
func Rejected(index int, path string, err error) Result {
	return Result{index: index, path: path, status: StatusError, err: err}
}

// Index returns the position of the document in the request.
func (r Result) Index() int { return r.index }

// Path returns the document path as submitted.
func (r Result) Path() string { return r.path }

// Status returns the outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the rejection cause, if any.
func (r Result) Err() error { return r.err }

// Report collects the results of one write, in request order.
type Report struct {
	results []Result
}

// Add appends r.
func (b *Report) Add(r Result) { b.results = append(b.results, r) }

// Results returns every result in request order.
func (b *Report) Results() []Result { return b.results }

// Rejected returns only the failed results.
func (b *Report) Rejected() []Result {
	var out []Result
	for _, r := range b.results {
		if r.status == StatusError {
			out = append(out, r)
		}
	}
	return out
}

// OK reports whether every document was accepted.
func (b *Report) OK() bool { return len(b.Rejected()) == 0 }
