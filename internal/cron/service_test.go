package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/comercio-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.released++
	return nil
}

type testJob struct {
	name     string
	err      error
	runs     int
	deadline time.Time
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	t.deadline, _ = ctx.Deadline()
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry:   NewRegistry(jobs...),
		Lock:       lock,
		JobTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "notification-cleanup"}
	failure := &testJob{name: "outbox-retention", err: errors.New("boom")}
	lock := &fakeLock{}
	service := newTestService(t, lock, failure, success)

	err := service.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "outbox-retention: boom") {
		t.Fatalf("expected job error to be reported, got %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", success.runs, failure.runs)
	}
	if lock.released != 1 {
		t.Fatalf("expected lock released once, got %d", lock.released)
	}
}

func TestServiceRunCycleBoundsJobsWithTimeout(t *testing.T) {
	job := &testJob{name: "notification-cleanup"}
	service := newTestService(t, &fakeLock{}, job)

	before := time.Now()
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.deadline.IsZero() || job.deadline.After(before.Add(time.Minute+time.Second)) {
		t.Fatalf("expected a one minute deadline, got %s", job.deadline)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "outbox-retention"}
	lock := &fakeLock{acquired: true}
	service := newTestService(t, lock, job)

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("job must not run without the lock")
	}
	if lock.released != 0 {
		t.Fatal("lock held by another instance must not be released")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "notification-cleanup"}
	service := newTestService(t, &fakeLock{}, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the startup cycle to run, got %d runs", job.runs)
	}
}
