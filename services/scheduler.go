// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs: rate
// window reclamation and endpoint health refresh.
func StartMaintenanceScheduler(limiter *RateLimiter, registry *EndpointRegistry) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: reclaim expired rate windows
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if removed := limiter.Sweep(); removed > 0 {
				log.Printf("🧹 [THROTTLE] Reclaimed %d expired rate window(s)", removed)
			}
		}),
	)

	// Every 5 minutes: refresh endpoint health so the status surface
	// stays current between mint calls
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			registry.RefreshHealth(context.Background())
		}),
	)
}
