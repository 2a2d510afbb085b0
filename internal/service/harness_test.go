package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"task-tracker/internal/model"
	"task-tracker/internal/repository"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]uint
}

func (n *recordingNotifier) Notify(_ context.Context, staffIDs []uint, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, append([]uint(nil), staffIDs...))
	return nil
}

type harness struct {
	db         *gorm.DB
	tasks      *repository.TaskRepository
	assignees  *repository.AssigneeRepository
	staff      *repository.StaffRepository
	activity   *repository.ActivityRepository
	notifier   *recordingNotifier
	replicator *Replicator
	sweep      *SweepService
	svc        *TaskService
	log        *logrus.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), log)
	require.NoError(t, err, "NewDB")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	h := &harness{
		db:        db,
		tasks:     repository.NewTaskRepository(db),
		assignees: repository.NewAssigneeRepository(db),
		staff:     repository.NewStaffRepository(db),
		activity:  repository.NewActivityRepository(db),
		notifier:  &recordingNotifier{},
		log:       log,
	}
	h.wire(h.tasks, h.assignees)
	return h
}

// wire (re)builds the services over the given stores so tests can inject
// failing wrappers.
func (h *harness) wire(tasks TaskStore, assignees AssigneeStore) {
	visibility := NewVisibilityResolver(h.staff)
	authz := NewAuthorizer(visibility, nil)
	h.replicator = NewReplicator(tasks, assignees, h.activity, h.notifier, h.log, nil)
	h.sweep = NewSweepService(tasks, h.replicator, h.log, nil)
	h.svc = NewTaskService(TaskServiceDeps{
		Tasks:      tasks,
		Assignees:  assignees,
		Staff:      h.staff,
		Activity:   h.activity,
		Notifier:   h.notifier,
		Authz:      authz,
		Visibility: visibility,
		Replicator: h.replicator,
		Log:        h.log,
	})
}

func (h *harness) addStaff(t *testing.T, dept string) Actor {
	t.Helper()
	staff := &model.Staff{AuthID: fmt.Sprintf("auth-%d", h.count(t)+1), Name: dept}
	if dept != "" {
		staff.Department = &dept
	}
	require.NoError(t, h.staff.Create(context.Background(), staff))
	return Actor{StaffID: staff.ID, Department: staff.Department}
}

func (h *harness) count(t *testing.T) int64 {
	var n int64
	require.NoError(t, h.db.Model(&model.Staff{}).Count(&n).Error)
	return n
}

func (h *harness) addTask(t *testing.T, task *model.Task, assignees ...uint) *model.Task {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.tasks.Create(ctx, task))
	if len(assignees) > 0 {
		require.NoError(t, h.assignees.Replace(ctx, task.ID, task.CreatorID, assignees))
	}
	return task
}

func (h *harness) countTasks(t *testing.T) int64 {
	var n int64
	require.NoError(t, h.db.Model(&model.Task{}).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }
