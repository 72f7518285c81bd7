package domain

import (
	"maps"
	"slices"
)

// Well known job parameter names.
const (
	ParamOutputFile = "outputFile" // local path or gs://bucket/object
	ParamDryRun     = "dryRun"     // "true" discards output
)

// JobParameters is an immutable set of named string parameters supplied at launch.
type JobParameters struct {
	params map[string]string
}

// NewJobParameters copies m into a new JobParameters.
func NewJobParameters(m map[string]string) JobParameters {
	params := make(map[string]string, len(m))
	maps.Copy(params, m)
	return JobParameters{params: params}
}

// GetString returns the value for key and whether it was supplied.
func (p JobParameters) GetString(key string) (string, bool) {
	v, ok := p.params[key]
	return v, ok
}

// Keys returns the parameter names in sorted order.
func (p JobParameters) Keys() []string {
	return slices.Sorted(maps.Keys(p.params))
}

// Len returns the number of parameters.
func (p JobParameters) Len() int {
	return len(p.params)
}

// ToMap returns a copy of the parameters.
func (p JobParameters) ToMap() map[string]string {
	out := make(map[string]string, len(p.params))
	maps.Copy(out, p.params)
	return out
}
