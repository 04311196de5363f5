package server

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ridgedb/ridgedb/internal/store"
	"github.com/ridgedb/ridgedb/pkg/log"
)

// Scheduler runs the housekeeping jobs a running instance needs beyond
// answering commands: active expiry, and (when attached) AOF/replication
// ticks. Generalises the teacher's
// internal/taskManager, which registers one gocron job per periodic
// service (stopJobsExceedTime, commitJobService, ldapSyncService)
// against a single package-level gocron.Scheduler; here each RidgeDB
// instance owns its own Scheduler instead of a process-global one, so
// tests can start/stop independent instances.
type Scheduler struct {
	sched gocron.Scheduler
}

// NewScheduler creates the underlying gocron scheduler without
// starting any jobs.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{sched: s}, nil
}

// RegisterActiveExpireSweep runs store.Keyspace's SweepExpired on every
// database at the given interval, the active (not purely lazy-on-access)
// half of §2's expiry model.
func (s *Scheduler) RegisterActiveExpireSweep(ks *store.Keyspace, interval time.Duration) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			total := 0
			for i := 0; i < ks.NumDB(); i++ {
				total += ks.DB(i).SweepExpired(time.Now())
			}
			if total > 0 {
				log.Debugf("scheduler: active expire swept %d keys", total)
			}
		}),
	)
	return err
}

// RegisterFunc runs fn on a fixed interval — the generic hook AOF's
// everysec fsync, replication's stale-replica reaper, the nodes.conf
// save and the snapshot job use instead of each spinning up their own
// goroutine+ticker.
func (s *Scheduler) RegisterFunc(interval time.Duration, fn func()) error {
	_, err := s.sched.NewJob(gocron.DurationJob(interval), gocron.NewTask(fn))
	return err
}

// Start begins running registered jobs.
func (s *Scheduler) Start() { s.sched.Start() }

// Shutdown stops the scheduler and waits for in-flight jobs to finish.
func (s *Scheduler) Shutdown() error { return s.sched.Shutdown() }
