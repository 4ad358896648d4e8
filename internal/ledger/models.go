package ledger

import "time"

// Mode identifies what a recorded run did.
type Mode string

const (
	// ModeFetch is a full download batch.
	ModeFetch Mode = "fetch"
	// ModeLocalize is a local-path pass without downloads.
	ModeLocalize Mode = "localize"
)

// Run is one batch as stored in the ledger.
type Run struct {
	ID         string
	Mode       Mode
	StartedAt  time.Time
	FinishedAt time.Time
	InputPath  string
	OutputPath string
	ImagesDir  string
	Records    int
	Jobs       int
	Succeeded  int
	Failed     int
	Skipped    int
	Duration   time.Duration
	// JobResults is populated by Record callers and by GetRun; ListRuns
	// leaves it empty.
	JobResults []Job
}

// Job is the terminal outcome of one download job within a run.
type Job struct {
	RecordID     string
	Kind         string
	SourceURL    string
	Destination  string
	Status       string
	Attempts     int
	FailureKind  string
	HTTPStatus   int
	ErrorMessage string
	Bytes        int64
	Duration     time.Duration
}
