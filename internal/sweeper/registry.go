package sweeper

import (
	"context"
	"slices"
)

// Job is one unit of periodic work. Name labels its metrics and log lines, so
// it must be unique within a Registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the ordered set of jobs one sweep cycle runs.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, j := range jobs {
		r.Register(j)
	}
	return r
}

// Register appends job unless it is nil or its name is already taken, and
// reports whether it was added.
func (r *Registry) Register(job Job) bool {
	if job == nil || slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == job.Name() }) {
		return false
	}
	r.jobs = append(r.jobs, job)
	return true
}

// Jobs returns the jobs in registration order. The slice is a copy.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
