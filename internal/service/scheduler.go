package service

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs the daily digest and the weekly backup
type Scheduler struct {
	digest     DigestSender
	backup     Backupper
	digestTime string // Format: "HH:MM"
	logger     *zap.Logger
	now        func() time.Time
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewScheduler creates a new Scheduler. Either collaborator may be nil, in
// which case its job is not scheduled.
func NewScheduler(digest DigestSender, backup Backupper, digestTime string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		digest:     digest,
		backup:     backup,
		digestTime: digestTime,
		logger:     logger,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}
}

// Start starts all scheduled jobs
func (s *Scheduler) Start() {
	if s.digest != nil {
		s.wg.Add(1)
		go s.run("daily digest", s.NextDigestTime, s.sendDigest)
	}
	if s.backup != nil {
		s.wg.Add(1)
		go s.run("weekly backup", s.NextBackupTime, s.runBackup)
	}
	s.logger.Info("scheduler started",
		zap.String("digest_time", s.digestTime),
		zap.Bool("digest", s.digest != nil),
		zap.Bool("backup", s.backup != nil),
	)
}

// Stop stops all scheduled jobs and waits for them to exit
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *Scheduler) run(name string, next func() time.Time, job func()) {
	defer s.wg.Done()
	for {
		nextRun := next()
		duration := nextRun.Sub(s.now())

		s.logger.Info("next job scheduled",
			zap.String("job", name),
			zap.Time("at", nextRun),
			zap.Duration("in", duration.Round(time.Minute)),
		)

		timer := time.NewTimer(duration)
		select {
		case <-timer.C:
			job()
		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

func (s *Scheduler) sendDigest() {
	if err := s.digest.SendDigest(); err != nil {
		s.logger.Error("failed to send daily digest", zap.Error(err))
		return
	}
	s.logger.Info("daily digest sent")
}

func (s *Scheduler) runBackup() {
	path, err := s.backup.Backup()
	if err != nil {
		s.logger.Error("failed to create backup", zap.Error(err))
		return
	}
	s.logger.Info("backup created", zap.String("path", path))
}

// NextDigestTime returns the next occurrence of the digest time
func (s *Scheduler) NextDigestTime() time.Time {
	now := s.now()

	hour, minute, err := ParseClock(s.digestTime)
	if err != nil {
		hour, minute = 8, 0
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// NextBackupTime returns the next Sunday at 03:00
func (s *Scheduler) NextBackupTime() time.Time {
	now := s.now()

	daysUntilSunday := (7 - int(now.Weekday())) % 7
	at := time.Date(now.Year(), now.Month(), now.Day()+daysUntilSunday, 3, 0, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}

// ParseClock parses an "HH:MM" time of day
func ParseClock(value string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: out of range", value)
	}
	return hour, minute, nil
}
