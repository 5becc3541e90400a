package reference

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ledgermill/classiflow/internal/model"
)

// exportedEvents caps how many learning events a snapshot carries.
const exportedEvents = 100

// Snapshot is the portable JSON form of the pattern store.
type Snapshot struct {
	ExportedAt           time.Time                 `json:"exportedAt"`
	MerchantPatterns     []model.MerchantPattern   `json:"merchantPatterns"`
	CategorySignatures   []model.CategorySignature `json:"categorySignatures"`
	RecentLearningEvents []model.LearningEvent     `json:"recentLearningEvents"`
}

// Export serializes the store, including the most recent learning events,
// for backup or transfer to another instance.
func (s *Store) Export() ([]byte, error) {
	return json.MarshalIndent(s.Dump(), "", "  ")
}

// Dump copies the store's contents into a Snapshot.
func (s *Store) Dump() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ExportedAt:         time.Now(),
		MerchantPatterns:   make([]model.MerchantPattern, 0, len(s.patterns)),
		CategorySignatures: make([]model.CategorySignature, 0, len(s.signatures)),
	}
	for _, p := range s.patterns {
		snap.MerchantPatterns = append(snap.MerchantPatterns, *p)
	}
	for _, sig := range s.signatures {
		snap.CategorySignatures = append(snap.CategorySignatures, *sig)
	}

	events := s.events
	if len(events) > exportedEvents {
		events = events[len(events)-exportedEvents:]
	}
	snap.RecentLearningEvents = append(snap.RecentLearningEvents, events...)

	return snap
}

// Import replaces the store's contents with a previously exported snapshot.
func (s *Store) Import(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}
	return s.Load(snap)
}

// Load replaces the store's contents with a Snapshot.
func (s *Store) Load(snap Snapshot) error {
	if len(snap.MerchantPatterns) == 0 && len(snap.CategorySignatures) == 0 {
		return fmt.Errorf("snapshot contains no patterns")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.patterns = nil
	s.patternByID = make(map[string]*model.MerchantPattern)
	s.signatures = nil
	s.signatureByID = make(map[string]*model.CategorySignature)
	s.events = snap.RecentLearningEvents

	for i := range snap.MerchantPatterns {
		p := snap.MerchantPatterns[i]
		s.addPattern(&p)
	}
	for i := range snap.CategorySignatures {
		sig := snap.CategorySignatures[i]
		s.addSignature(&sig)
	}

	return nil
}
