// services/reward_store.go
package services

import (
	"sync"
	"time"

	"jemzy-backend/models"
)

// ClaimStatus is the outcome of an atomic claim attempt against the store.
type ClaimStatus int

const (
	ClaimOK ClaimStatus = iota
	ClaimNotFound
	ClaimAlreadyCollected
	ClaimExpired
	ClaimRejected // caller's gate (the distance check) declined the claim
)

// RewardStore holds the live reward instances for the process. It is purely
// in-memory and exclusively owned by this process: a restart loses all live
// instances, and a multi-instance deployment would hold divergent stores
// (an accepted limit for this domain).
//
// All mutation happens under one mutex, so the claimable→collected flip is a
// real compare-and-set: two concurrent claims against the same instance can
// never both pass the "not collected" check.
type RewardStore struct {
	mu    sync.RWMutex
	items map[string]*models.RewardInstance
}

func NewRewardStore() *RewardStore {
	return &RewardStore{items: make(map[string]*models.RewardInstance)}
}

// Insert adds a freshly spawned instance.
func (s *RewardStore) Insert(inst *models.RewardInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[inst.ID] = inst
}

// Get returns a copy of the instance, collected or not, if it is still held.
func (s *RewardStore) Get(id string) (models.RewardInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.items[id]
	if !ok {
		return models.RewardInstance{}, false
	}
	return *inst, true
}

// Len reports how many instances are held, including collected ones that
// have not been swept yet.
func (s *RewardStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Claim atomically transitions an instance from claimable to collected.
// The gate runs under the lock with a snapshot of the instance; it is where
// the caller performs its proximity check. Ordering of failures mirrors the
// claim sequence: not found → already collected → expired → gated.
//
// A found-but-expired instance is evicted as a side effect (lazy sweep).
// On ClaimOK the returned copy has IsCollected set; the instance stays in
// the store until the sweeper removes it.
func (s *RewardStore) Claim(id string, now time.Time, gate func(inst models.RewardInstance) bool) (models.RewardInstance, ClaimStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.items[id]
	if !ok {
		return models.RewardInstance{}, ClaimNotFound
	}
	if inst.IsCollected {
		return *inst, ClaimAlreadyCollected
	}
	if !now.Before(inst.ExpiresAt) {
		delete(s.items, id)
		return *inst, ClaimExpired
	}
	if gate != nil && !gate(*inst) {
		return *inst, ClaimRejected
	}

	inst.IsCollected = true
	return *inst, ClaimOK
}

// Sweep evicts every collected or time-expired instance and returns the
// eviction count.
func (s *RewardStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, inst := range s.items {
		if inst.IsCollected || !now.Before(inst.ExpiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// ListActive returns copies of the claimable instances of the given kind,
// lazily evicting any collected or expired ones it walks over.
func (s *RewardStore) ListActive(kind models.RewardKind, now time.Time) []models.RewardInstance {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]models.RewardInstance, 0, len(s.items))
	for id, inst := range s.items {
		if inst.IsCollected || !now.Before(inst.ExpiresAt) {
			delete(s.items, id)
			continue
		}
		if inst.Kind == kind {
			active = append(active, *inst)
		}
	}
	return active
}
