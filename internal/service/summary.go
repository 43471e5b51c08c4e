package service

import (
	"time"

	"fightsync/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// StageCounts aggregates per-record outcomes for one pipeline stage.
type StageCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (c *StageCounts) tally(outcome repository.UpsertOutcome) {
	if outcome == repository.OutcomeInserted {
		c.Inserted++
	} else {
		c.Updated++
	}
}

// RunSummary is the final tally of one sync run.
type RunSummary struct {
	RunID      string      `json:"run_id"`
	Mode       string      `json:"mode"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Events     StageCounts `json:"events"`
	Bouts      StageCounts `json:"bouts"`
	Results    StageCounts `json:"results"`
}

func newRunSummary(mode string) *RunSummary {
	id, err := gonanoid.New()
	if err != nil {
		id = "unknown"
	}
	return &RunSummary{
		RunID:     id,
		Mode:      mode,
		StartedAt: time.Now(),
	}
}
