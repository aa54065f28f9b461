package mirror

import (
	"minio2local/internal/state"
	"minio2local/internal/storage"
)

// Classification is the diff verdict for one remote descriptor
type Classification int

const (
	ClassNone Classification = iota
	ClassNew
	ClassModified
)

func (c Classification) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassModified:
		return "modified"
	default:
		return "none"
	}
}

// Outcome is the terminal state of one executed job
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeFetched
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Job pairs one remote descriptor with its cached record and classification.
// It lives for a single run: created by the Classifier, handed through the
// Queue, owned by the Executor until terminal.
type Job struct {
	Object storage.ObjectInfo
	Record *state.Record
	Class  Classification
}
