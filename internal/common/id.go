package common

import (
	"github.com/google/uuid"
)

// NewReportID generates a unique report ID. Format: rpt_<uuid>
func NewReportID() string {
	return "rpt_" + uuid.New().String()
}

// NewJobID generates a unique queue job ID. Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewBatchID generates a quote sync batch ID. Format: batch_<uuid>
func NewBatchID() string {
	return "batch_" + uuid.New().String()
}
