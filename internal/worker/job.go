package worker

import (
	"time"
)

// Job asks the worker for one rotation pass.
type Job struct {
	Reason  string    // "startup", "schedule", "reload", "manual"
	Time    time.Time // reference "now" for the pass; zero means the worker's clock
	Targets []string  // limit to these target paths; empty means all
}
