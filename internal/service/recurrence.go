package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"task-tracker/internal/metrics"
	"task-tracker/internal/model"
)

// Replication describes the outcome of advancing a recurring task.
type Replication struct {
	Source   *model.Task
	Task     *model.Task
	Subtasks []model.Task
	// Cascade is a *PartialReplicationError when copying assignees or
	// subtasks failed after Task was committed.
	Cascade error
}

// Replicator advances completed recurring tasks to their next occurrence.
type Replicator struct {
	tasks     TaskStore
	assignees AssigneeStore
	activity  ActivityRecorder
	notifier  Notifier
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
}

func NewReplicator(tasks TaskStore, assignees AssigneeStore, activity ActivityRecorder, notifier Notifier, log logrus.FieldLogger, m *metrics.Metrics) *Replicator {
	return &Replicator{
		tasks:     tasks,
		assignees: assignees,
		activity:  activity,
		notifier:  notifier,
		log:       log,
		metrics:   m,
	}
}

// CheckEligible returns a *NotEligibleError when source must not be replicated.
func CheckEligible(source *model.Task) error {
	var reason Reason
	switch {
	case source.RepeatInterval <= 0:
		reason = ReasonNoRepeatInterval
	case source.DueDate == nil:
		reason = ReasonNoDueDate
	case source.Status != model.StatusCompleted:
		reason = ReasonNotCompleted
	case source.DeletedAt.Valid:
		reason = ReasonDeleted
	default:
		return nil
	}
	return &NotEligibleError{TaskID: source.ID, Reason: reason}
}

// NextOccurrence builds the successor of source: same content, dates moved
// forward by one repeat interval, status reset, interval kept.
func NextOccurrence(source *model.Task) *model.Task {
	next := copyTask(source, source.RepeatInterval)
	next.ParentID = source.ParentID
	next.RepeatInterval = source.RepeatInterval
	return next
}

// Replicate creates the next occurrence of source, then copies its active
// assignees and direct subtasks. The new task and the cleared recurrence
// guard of source are committed together; cascade failures afterwards are
// logged and reported in Replication.Cascade without undoing either.
func (r *Replicator) Replicate(ctx context.Context, source *model.Task) (*Replication, error) {
	if err := CheckEligible(source); err != nil {
		r.metrics.Replication("not_eligible")
		return nil, err
	}

	interval := source.RepeatInterval
	next := NextOccurrence(source)
	if err := r.tasks.CreateOccurrence(ctx, next, source.ID, interval); err != nil {
		if errors.Is(err, ErrAlreadyReplicated) {
			r.metrics.Replication("duplicate")
			return nil, errors.Wrapf(err, "task %d", source.ID)
		}
		r.metrics.Replication("failed")
		return nil, errors.Wrapf(err, "replicate task %d", source.ID)
	}
	source.RepeatInterval = 0

	rep := &Replication{Source: source, Task: next}
	log := r.log.WithFields(logrus.Fields{"task_id": source.ID, "new_task_id": next.ID})

	var causes []error
	if err := r.copyAssignees(ctx, source.ID, next.ID); err != nil {
		causes = append(causes, err)
	}
	subtasks, err := r.tasks.DirectSubtasks(ctx, source.ID)
	if err != nil {
		causes = append(causes, errors.Wrap(err, "list subtasks"))
	}
	for i := range subtasks {
		sub := copyTask(&subtasks[i], interval)
		sub.ParentID = &next.ID
		if err := r.tasks.Create(ctx, sub); err != nil {
			causes = append(causes, errors.Wrapf(err, "copy subtask %d", subtasks[i].ID))
			continue
		}
		rep.Subtasks = append(rep.Subtasks, *sub)
		if err := r.copyAssignees(ctx, subtasks[i].ID, sub.ID); err != nil {
			causes = append(causes, err)
		}
	}

	if len(causes) > 0 {
		rep.Cascade = &PartialReplicationError{SourceID: source.ID, NewID: next.ID, Causes: causes}
		log.WithError(rep.Cascade).Warn("replication cascade incomplete")
		r.metrics.Replication("partial")
	} else {
		r.metrics.Replication("created")
	}
	log.WithField("subtasks", len(rep.Subtasks)).Info("task replicated")

	r.announce(ctx, rep)
	return rep, nil
}

func (r *Replicator) copyAssignees(ctx context.Context, fromID, toID uint) error {
	rows, err := r.assignees.Active(ctx, fromID)
	if err != nil {
		return errors.Wrapf(err, "read assignees of %d", fromID)
	}
	copies := make([]model.TaskAssignee, 0, len(rows))
	for _, row := range rows {
		copies = append(copies, model.TaskAssignee{
			TaskID:     toID,
			StaffID:    row.StaffID,
			AssignedBy: row.AssignedBy,
			IsActive:   true,
		})
	}
	if err := r.assignees.Insert(ctx, copies); err != nil {
		return errors.Wrapf(err, "copy assignees of %d", fromID)
	}
	return nil
}

// announce records history on both tasks and tells the new assignees, or the
// creator of an unassigned task. Failures are only logged.
func (r *Replicator) announce(ctx context.Context, rep *Replication) {
	log := r.log.WithField("task_id", rep.Source.ID)
	detail := fmt.Sprintf("next occurrence %d due %s", rep.Task.ID, rep.Task.DueDate.Format(time.DateOnly))
	if r.activity != nil {
		if err := r.activity.Record(ctx, &model.Activity{TaskID: rep.Source.ID, StaffID: rep.Source.CreatorID, Action: model.ActionReplicated, Detail: detail}); err != nil {
			log.WithError(err).Warn("record replication activity")
		}
	}
	if r.notifier == nil {
		return
	}
	recipients := []uint{rep.Task.CreatorID}
	if rows, err := r.assignees.Active(ctx, rep.Task.ID); err == nil && len(rows) > 0 {
		recipients = model.ActiveStaffIDs(rows)
	}
	text := fmt.Sprintf("Recurring task %q is scheduled again, due %s.", rep.Task.Title, rep.Task.DueDate.Format(time.DateOnly))
	if err := r.notifier.Notify(ctx, recipients, text); err != nil {
		log.WithError(err).Warn("notify replication")
	}
}

// copyTask clones the content of src with dates moved by days. The copy is
// not started, not completed and does not repeat.
func copyTask(src *model.Task, days int) *model.Task {
	var tags []string
	if src.Tags != nil {
		tags = append([]string{}, src.Tags...)
	}
	return &model.Task{
		Title:     src.Title,
		Notes:     src.Notes,
		StartDate: shiftDays(src.StartDate, days),
		DueDate:   shiftDays(src.DueDate, days),
		Status:    model.StatusNotStarted,
		Priority:  src.Priority,
		Tags:      tags,
		CreatorID: src.CreatorID,
		ProjectID: src.ProjectID,
	}
}

func shiftDays(t *time.Time, days int) *time.Time {
	if t == nil {
		return nil
	}
	shifted := t.AddDate(0, 0, days)
	return &shifted
}
