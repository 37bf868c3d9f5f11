// services/scheduler.go
package services

import (
	"log"
	"time"

	"jemzy-backend/models"

	"github.com/go-co-op/gocron/v2"
)

// Timer cadences. The spawn, sweep and quest-check jobs run independently
// and never coordinate; each cycle runs to completion once started.
const (
	TreasureSpawnInterval   = 3 * time.Hour
	MysteryBoxSpawnInterval = 2 * time.Hour
	SweepInterval           = 10 * time.Minute
	QuestCheckInterval      = 5 * time.Minute
	// InitialSpawnDelay lets startup (migrations, listeners) settle before
	// the first spawn fires.
	InitialSpawnDelay = 30 * time.Second
)

// Scheduler owns the background timers. The caller creates and stops it;
// there is no package-level mutable state.
type Scheduler struct {
	sched gocron.Scheduler
}

// StartScheduler wires and starts every periodic job. Job bodies swallow
// their own failures (logging them) so one bad cycle never kills the timer.
func StartScheduler(rewards *GeoRewardService, quests *QuestService) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	// One early spawn of each kind shortly after boot.
	_, err = sched.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(InitialSpawnDelay))),
		gocron.NewTask(func() {
			spawnLogged(rewards, models.RewardKindTreasureChest)
			spawnLogged(rewards, models.RewardKindMysteryBox)
		}),
	)
	if err != nil {
		return nil, err
	}

	if _, err = sched.NewJob(
		gocron.DurationJob(TreasureSpawnInterval),
		gocron.NewTask(func() { spawnLogged(rewards, models.RewardKindTreasureChest) }),
	); err != nil {
		return nil, err
	}

	if _, err = sched.NewJob(
		gocron.DurationJob(MysteryBoxSpawnInterval),
		gocron.NewTask(func() { spawnLogged(rewards, models.RewardKindMysteryBox) }),
	); err != nil {
		return nil, err
	}

	if _, err = sched.NewJob(
		gocron.DurationJob(SweepInterval),
		gocron.NewTask(func() { rewards.SweepExpired() }),
	); err != nil {
		return nil, err
	}

	if _, err = sched.NewJob(
		gocron.DurationJob(QuestCheckInterval),
		gocron.NewTask(func() { quests.CheckExpiredQuests() }),
	); err != nil {
		return nil, err
	}

	sched.Start()
	log.Printf("⏰ Scheduler started: treasure spawn %s, box spawn %s, sweep %s, quest check %s",
		TreasureSpawnInterval, MysteryBoxSpawnInterval, SweepInterval, QuestCheckInterval)
	return &Scheduler{sched: sched}, nil
}

// Stop halts future firings. In-flight cycles are not drained.
func (s *Scheduler) Stop() {
	if err := s.sched.Shutdown(); err != nil {
		log.Printf("⚠️ Scheduler shutdown error: %v", err)
	}
}

func spawnLogged(rewards *GeoRewardService, kind models.RewardKind) {
	if _, err := rewards.Spawn(kind); err != nil {
		log.Printf("❌ [SPAWN] scheduled %s spawn failed: %v", kind, err)
	}
}
