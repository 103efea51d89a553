package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/newsdesk/app/feed"
	"github.com/lysyi3m/newsdesk/app/pipeline"
	"github.com/lysyi3m/newsdesk/app/session"
)

// MockChannelProvider implements a simple mock for testing
type MockChannelProvider struct {
	channels []*feed.Channel
}

func (m *MockChannelProvider) GetEnabledChannels() []*feed.Channel {
	return m.channels
}

// MockRefresher records refresh calls
type MockRefresher struct {
	calls atomic.Int32
	model pipeline.RenderModel
	err   error
}

func (m *MockRefresher) Refresh(ctx context.Context, sess *session.Context, channelName string) (pipeline.RenderModel, error) {
	m.calls.Add(1)
	return m.model, m.err
}

// MockWarmer returns one result per source
type MockWarmer struct {
	calls atomic.Int32
	err   error
}

func (m *MockWarmer) FetchAll(ctx context.Context, sources []feed.Source, timeout time.Duration) []feed.FetchResult {
	m.calls.Add(1)
	results := make([]feed.FetchResult, len(sources))
	for i, source := range sources {
		results[i] = feed.FetchResult{Source: source, Err: m.err}
	}
	return results
}

// MockTask fails a fixed number of times
type MockTask struct {
	Task
	failures int
	executed atomic.Int32
	done     chan struct{}
}

func (m *MockTask) Execute(ctx context.Context) error {
	n := int(m.executed.Add(1))
	if n <= m.failures {
		return errors.New("mock error")
	}
	if m.done != nil {
		close(m.done)
	}
	return nil
}

func testChannels() []*feed.Channel {
	return []*feed.Channel{
		{
			Name:     "global",
			Feeds:    []feed.Source{{URL: "https://example.com/a"}, {URL: "https://example.com/b"}},
			Settings: feed.ChannelSettings{Enabled: true, Warm: true},
		},
		{
			Name:     "markets",
			Feeds:    []feed.Source{{URL: "https://example.com/c"}},
			Settings: feed.ChannelSettings{Enabled: true},
		},
	}
}

func TestNewScheduler(t *testing.T) {
	scheduler := NewScheduler(&MockChannelProvider{}, session.NewStore(0, time.Hour), &MockRefresher{}, &MockWarmer{}, time.Second, 2)

	if scheduler == nil {
		t.Fatal("Expected scheduler to be created")
	}

	if scheduler.workerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", scheduler.workerCount)
	}

	if scheduler.interval != time.Second {
		t.Errorf("Expected interval 1s, got %v", scheduler.interval)
	}
}

func TestNewSchedulerDefaultsWorkerCount(t *testing.T) {
	scheduler := NewScheduler(&MockChannelProvider{}, session.NewStore(0, time.Hour), &MockRefresher{}, &MockWarmer{}, time.Second, 0)

	if scheduler.workerCount != 1 {
		t.Errorf("Expected worker count 1, got %d", scheduler.workerCount)
	}
}

func TestEnqueueTasks(t *testing.T) {
	store := session.NewStore(0, time.Hour)
	store.Create("idle")
	live := store.Create("live")
	live.StartLive([]string{"global", "markets"})

	scheduler := NewScheduler(&MockChannelProvider{channels: testChannels()}, store, &MockRefresher{}, &MockWarmer{}, time.Second, 1)

	scheduler.enqueueTasks()

	if len(scheduler.taskQueue) != 3 {
		t.Fatalf("Expected 3 queued tasks, got %d", len(scheduler.taskQueue))
	}

	counts := map[TaskType]int{}
	for len(scheduler.taskQueue) > 0 {
		task := <-scheduler.taskQueue
		counts[task.GetType()]++
	}

	if counts[TaskTypeRefreshLive] != 2 {
		t.Errorf("Expected 2 refresh tasks, got %d", counts[TaskTypeRefreshLive])
	}
	if counts[TaskTypeWarmCache] != 1 {
		t.Errorf("Expected 1 warm task, got %d", counts[TaskTypeWarmCache])
	}
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	scheduler := NewScheduler(&MockChannelProvider{}, session.NewStore(0, time.Hour), &MockRefresher{}, &MockWarmer{}, time.Second, 1)

	for i := 0; i < taskQueueSize; i++ {
		if err := scheduler.EnqueueTask(&MockTask{Task: NewTask(TaskTypeWarmCache, "global")}); err != nil {
			t.Fatalf("Unexpected error at %d: %v", i, err)
		}
	}

	if err := scheduler.EnqueueTask(&MockTask{Task: NewTask(TaskTypeWarmCache, "global")}); err == nil {
		t.Error("Expected error when the queue is full")
	}
}

func TestEnqueueTaskAfterStop(t *testing.T) {
	scheduler := NewScheduler(&MockChannelProvider{}, session.NewStore(0, time.Hour), &MockRefresher{}, &MockWarmer{}, time.Hour, 1)
	scheduler.Start()
	scheduler.Stop()

	if err := scheduler.EnqueueTask(&MockTask{Task: NewTask(TaskTypeWarmCache, "global")}); err == nil {
		t.Error("Expected error after the scheduler stopped")
	}
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	scheduler := NewScheduler(&MockChannelProvider{}, session.NewStore(0, time.Hour), &MockRefresher{}, &MockWarmer{}, time.Hour, 1)
	scheduler.Start()
	defer scheduler.Stop()

	task := &MockTask{Task: NewTask(TaskTypeWarmCache, "global"), failures: 1, done: make(chan struct{})}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	select {
	case <-task.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected task to succeed on retry")
	}

	if task.GetRetryCount() != 1 {
		t.Errorf("Expected retry count 1, got %d", task.GetRetryCount())
	}
}

func TestSchedulerGivesUpAfterMaxRetries(t *testing.T) {
	scheduler := NewScheduler(&MockChannelProvider{}, session.NewStore(0, time.Hour), &MockRefresher{}, &MockWarmer{}, time.Hour, 1)

	task := &MockTask{Task: NewTask(TaskTypeWarmCache, "global"), failures: 10}
	task.RetryCount = task.MaxRetries

	scheduler.executeTask(0, task)
	scheduler.Stop()

	if task.executed.Load() != 1 {
		t.Errorf("Expected a single execution, got %d", task.executed.Load())
	}
	if len(scheduler.taskQueue) != 0 {
		t.Errorf("Expected no retry to be queued, got %d", len(scheduler.taskQueue))
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{20, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := retryDelay(tt.attempt); got != tt.expected {
			t.Errorf("retryDelay(%d): expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestNewTask(t *testing.T) {
	a := NewTask(TaskTypeRefreshLive, "global")
	b := NewTask(TaskTypeRefreshLive, "global")

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected unique task ids, got '%s' and '%s'", a.ID, b.ID)
	}
	if a.MaxRetries != DefaultMaxRetries || !a.CanRetry() {
		t.Errorf("Expected %d retries available", DefaultMaxRetries)
	}
	if a.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}
}
