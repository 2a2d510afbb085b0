package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"task-tracker/internal/metrics"
)

// SweepResult counts one reconciliation pass.
type SweepResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Failed    int `json:"failed"`
}

// SweepService re-drives replication for completed recurring tasks whose
// guard is still set, e.g. because the inline trigger never ran.
type SweepService struct {
	tasks      TaskStore
	replicator *Replicator
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

func NewSweepService(tasks TaskStore, replicator *Replicator, log logrus.FieldLogger, m *metrics.Metrics) *SweepService {
	return &SweepService{tasks: tasks, replicator: replicator, log: log, metrics: m}
}

// Run replicates every candidate. A failing task is logged and skipped.
func (s *SweepService) Run(ctx context.Context) (SweepResult, error) {
	started := time.Now()
	var res SweepResult

	candidates, err := s.tasks.ListReplicationCandidates(ctx)
	if err != nil {
		return res, errors.Wrap(err, "sweep")
	}

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		task := &candidates[i]
		res.Processed++

		_, err := s.replicator.Replicate(ctx, task)
		switch {
		case err == nil:
			res.Created++
		case IsNotEligible(err), errors.Is(err, ErrAlreadyReplicated):
			s.log.WithField("task_id", task.ID).WithError(err).Debug("sweep skipped task")
		default:
			res.Failed++
			s.log.WithField("task_id", task.ID).WithError(err).Error("sweep replication failed")
		}
	}

	s.metrics.Sweep(res.Processed, res.Created, time.Since(started).Seconds())
	s.log.WithFields(logrus.Fields{
		"processed": res.Processed,
		"created":   res.Created,
		"failed":    res.Failed,
	}).Info("sweep finished")
	return res, nil
}
