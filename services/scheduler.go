// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRecalcScheduler runs a periodic full recalculation as a safety net:
// if an outcome ever reaches the database without its trigger firing (manual
// SQL fix, worker crash mid-write), the leaderboard still converges within
// the hour.
func (s *ScoreService) StartRecalcScheduler() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Scheduler] failed to create scheduler: %v", err)
		return
	}
	sched.Start()

	_, err = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			started := time.Now()
			if err := s.RecalculateAll(); err != nil {
				log.Printf("[Scheduler] full recalculation failed: %v", err)
				return
			}
			log.Printf("[Scheduler] full recalculation done in %s", time.Since(started).Round(time.Millisecond))
		}),
	)
	if err != nil {
		log.Printf("[Scheduler] failed to schedule recalculation job: %v", err)
	}
}
