package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"task-tracker/internal/config"
	"task-tracker/internal/httpapi"
	"task-tracker/internal/metrics"
	"task-tracker/internal/notify"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg       config.Config
	log       *logrus.Logger
	db        *gorm.DB
	sweep     *service.SweepService
	scheduler *service.SchedulerService
	handler   *httpapi.Handler
	telegram  *notify.Telegram
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	taskRepo := repository.NewTaskRepository(db)
	assigneeRepo := repository.NewAssigneeRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	a := &app{cfg: cfg, log: log, db: db}

	var notifier service.Notifier = notify.NewLog(log)
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, staffRepo, staffRepo, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.telegram = tg
		notifier = tg
	}

	visibility := service.NewVisibilityResolver(staffRepo)
	replicator := service.NewReplicator(taskRepo, assigneeRepo, activityRepo, notifier, log, m)
	a.sweep = service.NewSweepService(taskRepo, replicator, log, m)
	tasks := service.NewTaskService(service.TaskServiceDeps{
		Tasks:      taskRepo,
		Assignees:  assigneeRepo,
		Staff:      staffRepo,
		Activity:   activityRepo,
		Notifier:   notifier,
		Authz:      service.NewAuthorizer(visibility, m),
		Visibility: visibility,
		Replicator: replicator,
		Log:        log,
	})
	a.handler = httpapi.NewHandler(tasks, a.sweep, reg, log)
	a.scheduler = service.NewSchedulerService(loc, log)
	return a, nil
}

func (a *app) scheduleSweeps() error {
	if _, err := a.scheduler.ScheduleSweep(a.cfg.SweepInterval, a.cfg.SweepTimeout, a.sweep); err != nil {
		return err
	}
	if a.cfg.SweepAt != "" {
		if _, err := a.scheduler.ScheduleDailySweep(a.cfg.SweepAt, a.cfg.SweepTimeout, a.sweep); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newLogger(cfg config.Config) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
