package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskQueueSize = 300
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

type Scheduler struct {
	channels    ChannelProvider
	sessions    SessionProvider
	refresher   Refresher
	warmer      Warmer
	extraction  *ContentExtraction
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(channels ChannelProvider, sessions SessionProvider, refresher Refresher,
	warmer Warmer, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount <= 0 {
		workerCount = 1
	}

	return &Scheduler{
		channels:    channels,
		sessions:    sessions,
		refresher:   refresher,
		warmer:      warmer,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
	}
}

// EnableContentExtraction adds an extract_content task to every tick. It must
// be called before Start.
func (s *Scheduler) EnableContentExtraction(extraction ContentExtraction) {
	extraction.inFlight = &atomic.Bool{}
	s.extraction = &extraction
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueWarmTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

// Stop cancels queued and running work and waits for the workers to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	if removed := s.sessions.Sweep(); removed > 0 {
		slog.Info("Expired idle sessions", "count", removed)
	}

	s.enqueueLiveTasks()
	s.enqueueWarmTasks()
	s.enqueueExtractionTask()
}

func (s *Scheduler) enqueueLiveTasks() {
	for _, sess := range s.sessions.Live() {
		for _, channel := range sess.Watched() {
			task := NewRefreshLiveTask(channel, sess, s.refresher)
			if err := s.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue RefreshLiveTask", "session", sess.ID, "channel", channel, "error", err)
			}
		}
	}
}

func (s *Scheduler) enqueueWarmTasks() {
	channels := s.channels.GetEnabledChannels()
	if len(channels) == 0 {
		slog.Debug("No enabled channels found")
		return
	}

	for _, channel := range channels {
		if !channel.Settings.Warm {
			continue
		}

		task := NewWarmCacheTask(channel, s.warmer)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue WarmCacheTask", "channel", channel.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueExtractionTask() {
	if s.extraction == nil {
		return
	}

	if err := s.EnqueueTask(NewExtractContentTask(*s.extraction)); err != nil {
		slog.Warn("Failed to enqueue ExtractContentTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "channel", task.GetChannel(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(delay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// retryDelay doubles from one second per attempt, capped at maxRetryDelay.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		return maxRetryDelay
	}
	return min(time.Duration(1<<uint(attempt-1))*time.Second, maxRetryDelay)
}
