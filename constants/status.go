package constants

// JobStatus is the lifecycle state of a queued document.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"   // result produced (possibly empty)
	JobStatusFailed  JobStatus = "FAILED" // input missing or collaborator failure
)
