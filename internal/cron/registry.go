package cron

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// Job is one maintenance task run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// jobName bounds the values used as the job metric label.
var jobName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Registry is the ordered job list for one worker.
type Registry struct {
	jobs []Job
}

// NewRegistry registers jobs in order, skipping nils. A bad or repeated
// name is a wiring bug and panics.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("cron: nil job")
	}
	name := job.Name()
	if !jobName.MatchString(name) {
		return fmt.Errorf("cron: job name %q must be lowercase with digits, dashes or underscores", name)
	}
	if slices.Contains(r.Names(), name) {
		return fmt.Errorf("cron: job %q registered twice", name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the jobs in run order. The slice is a copy.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
