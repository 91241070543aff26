package scheduler

import (
	"context"
	"time"

	"github.com/nickelsound/3DprinterMonitor/internal/logger"
)

// FixedScheduler runs a task, sleeps a constant interval, and repeats until
// the context is cancelled. The interval is the same whether the task
// succeeded or failed; there is no backoff and ticks never overlap because
// each task runs to completion before the next wait starts.
type FixedScheduler struct {
	Name     string
	Interval time.Duration

	ctx   context.Context
	nowFn func() time.Time
}

func NewFixedScheduler(ctx context.Context, name string, interval time.Duration) *FixedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &FixedScheduler{
		Name:     name,
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

func (s *FixedScheduler) Start(task func()) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("FixedScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("FixedScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	prefix := "FixedScheduler"
	if s.Name != "" {
		prefix = prefix + "[" + s.Name + "]"
	}
	logger.Infof("%s: started interval=%s at=%s", prefix, s.Interval, startAt.Format(time.RFC3339))

	for {
		task()
		now := s.nowFn().UTC()
		logger.Debugf("%s: next run in %s | uptime=%s",
			prefix, s.Interval, now.Sub(startAt).Truncate(time.Second))
		if !s.waitUntil(now.Add(s.Interval)) {
			logger.Infof("%s: ctx done, exit", prefix)
			return
		}
	}
}

func (s *FixedScheduler) waitUntil(target time.Time) bool {
	now := s.nowFn().UTC()
	wait := target.Sub(now)
	if wait <= 0 {
		select {
		case <-s.ctx.Done():
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(wait)
	select {
	case <-s.ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}
