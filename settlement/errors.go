package settlement

import (
	"errors"
	"fmt"
)

// ErrUnresolvedWorkerReference is the sentinel behind every Omission.
var ErrUnresolvedWorkerReference = errors.New("UnresolvedWorkerReference")

// OmissionKind names why a record was left out of a worker total.
type OmissionKind string

const (
	OmissionUnresolvedWorker OmissionKind = "UnresolvedWorkerReference"
)

// Omission records a reference the aggregator could not attach to a worker.
// The record still counts at the salon level where applicable.
type Omission struct {
	Kind       OmissionKind `json:"kind"`
	RecordType string       `json:"record_type"` // "sale", "vale", "salary_source"
	RecordID   string       `json:"record_id"`
	WorkerID   string       `json:"worker_id"`
	Detail     string       `json:"detail"`
}

func (o Omission) Error() string {
	return fmt.Sprintf("%s: %s %s references worker %q: %s", o.Kind, o.RecordType, o.RecordID, o.WorkerID, o.Detail)
}

func (o Omission) Unwrap() error {
	return ErrUnresolvedWorkerReference
}
