package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps the cron runner for the console's background jobs.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithSeconds())}
}

// ScheduleInterval registers job to run every interval, rounded down to whole seconds.
func (s *Scheduler) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

type SessionCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

type WorkspaceEvicter interface {
	Evict(maxIdle time.Duration) int
}

// CleanupJob purges expired stored sessions (when a cleaner is given)
// and drops console workspaces idle for longer than maxIdle.
func CleanupJob(sessions SessionCleaner, workspaces WorkspaceEvicter, maxIdle time.Duration) func() {
	return func() {
		if sessions != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			removed, err := sessions.CleanExpired(ctx)
			cancel()
			if err != nil {
				log.Printf("Error cleaning expired sessions: %v", err)
			} else if removed > 0 {
				log.Printf("Removed %d expired sessions", removed)
			}
		}
		if workspaces != nil {
			if n := workspaces.Evict(maxIdle); n > 0 {
				log.Printf("Evicted %d idle workspaces", n)
			}
		}
	}
}
