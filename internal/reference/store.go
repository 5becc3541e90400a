// Package reference implements the deterministic pattern store that answers
// classification queries without calling the external model. It holds merchant
// alias patterns and keyword category signatures, both seeded at startup and
// grown at runtime from user feedback.
package reference

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ledgermill/classiflow/internal/common"
	"github.com/ledgermill/classiflow/internal/model"
)

// CoverageStats summarizes how much classification ground the store covers.
type CoverageStats struct {
	MerchantPatterns   int
	CategorySignatures int
	LearnedPatterns    int
	HighConfidence     int
	MediumConfidence   int
	LowConfidence      int
}

// Store holds merchant patterns and category signatures. All mutation goes
// through the store's mutex, which serializes learning events and match-count
// updates per pattern.
type Store struct {
	patterns      []*model.MerchantPattern
	patternByID   map[string]*model.MerchantPattern
	signatures    []*model.CategorySignature
	signatureByID map[string]*model.CategorySignature
	events        []model.LearningEvent
	mu            sync.Mutex
}

// NewStore creates a pattern store populated with the seed patterns.
func NewStore() *Store {
	s := &Store{
		patternByID:   make(map[string]*model.MerchantPattern),
		signatureByID: make(map[string]*model.CategorySignature),
	}

	for _, p := range seedMerchantPatterns() {
		s.addPattern(p)
	}
	for _, sig := range seedCategorySignatures() {
		s.addSignature(sig)
	}

	return s
}

// Lookup classifies a transaction from reference data alone. It returns
// (result, true) on a merchant or signature match and (zero, false) when the
// caller must fall back to the external classifier. A merchant hit increments
// the pattern's match count.
func (s *Store) Lookup(description string, amount float64, merchant string) (model.ClassificationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	searchText := strings.ToLower(description + " " + merchant)

	if result, ok := s.matchMerchant(searchText); ok {
		return result, true
	}

	if result, ok := s.matchSignature(searchText); ok {
		return result, true
	}

	return model.ClassificationResult{}, false
}

// matchMerchant scans patterns in insertion order; the first alias substring
// match wins.
func (s *Store) matchMerchant(searchText string) (model.ClassificationResult, bool) {
	for _, p := range s.patterns {
		for _, alias := range p.Aliases {
			if !strings.Contains(searchText, strings.ToLower(alias)) {
				continue
			}

			p.MatchCount++
			p.LastUpdated = time.Now()

			source := model.SourceReference
			if p.Learned {
				source = model.SourceLearned
			}

			return model.ClassificationResult{
				Category:              p.Category,
				Subcategory:           p.Subcategory,
				Confidence:            p.Confidence,
				IsTaxDeductible:       p.IsTaxDeductible,
				BusinessUsePercentage: p.BusinessUsePercentage,
				TaxCategory:           p.TaxCategory,
				IsBill:                p.IsRecurring,
				IsRecurring:           p.IsRecurring,
				Source:                source,
				Reasoning:             fmt.Sprintf("Matched merchant pattern: %s", p.CanonicalName),
				ProcessedAt:           time.Now(),
			}, true
		}
	}

	return model.ClassificationResult{}, false
}

// matchSignature counts keyword substring hits plus regex hits. A signature
// matches when hits reach ceil(len(keywords)/2); confidence scales with the
// hit ratio.
func (s *Store) matchSignature(searchText string) (model.ClassificationResult, bool) {
	for _, sig := range s.signatures {
		hits := 0
		for _, kw := range sig.Keywords {
			if strings.Contains(searchText, strings.ToLower(kw)) {
				hits++
			}
		}
		for _, pattern := range sig.RegexPatterns {
			matched, err := common.MatchRegex("(?i)"+pattern, searchText)
			if err != nil {
				continue
			}
			if matched {
				hits++
			}
		}

		threshold := (len(sig.Keywords) + 1) / 2
		if threshold < 1 {
			threshold = 1
		}
		if hits < threshold {
			continue
		}

		taxCategory := "Personal"
		if sig.IsTaxDeductible {
			taxCategory = "Business Expense"
		}

		// Regex-only signatures have no keyword ratio to scale by.
		confidence := sig.Confidence
		if len(sig.Keywords) > 0 {
			confidence = sig.Confidence * float64(hits) / float64(len(sig.Keywords))
		}

		return model.ClassificationResult{
			Category:              sig.Category,
			Subcategory:           sig.Subcategory,
			Confidence:            confidence,
			IsTaxDeductible:       sig.IsTaxDeductible,
			BusinessUsePercentage: sig.BusinessRelevance * 100,
			TaxCategory:           taxCategory,
			Source:                model.SourcePattern,
			Reasoning:             fmt.Sprintf("Matched category signature: %s (%d matches)", sig.Category, hits),
			ProcessedAt:           time.Now(),
		}, true
	}

	return model.ClassificationResult{}, false
}

// Coverage returns pattern counts and the confidence distribution of
// merchant patterns.
func (s *Store) Coverage() CoverageStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := CoverageStats{
		MerchantPatterns:   len(s.patterns),
		CategorySignatures: len(s.signatures),
	}

	for _, p := range s.patterns {
		if p.Learned {
			stats.LearnedPatterns++
		}
		switch {
		case p.Confidence > 0.8:
			stats.HighConfidence++
		case p.Confidence > 0.6:
			stats.MediumConfidence++
		default:
			stats.LowConfidence++
		}
	}

	return stats
}

// PatternConfidence reports the current confidence of a merchant pattern by
// canonical name or alias. Used by tests and the CLI.
func (s *Store) PatternConfidence(name string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := strings.ToLower(name)
	for _, p := range s.patterns {
		if strings.ToLower(p.CanonicalName) == lower {
			return p.Confidence, true
		}
		for _, alias := range p.Aliases {
			if strings.ToLower(alias) == lower {
				return p.Confidence, true
			}
		}
	}
	return 0, false
}

// addPattern registers a pattern, preserving insertion order. Callers must
// hold the mutex (or be running before the store is shared).
func (s *Store) addPattern(p *model.MerchantPattern) {
	s.patterns = append(s.patterns, p)
	s.patternByID[p.ID] = p
}

// addSignature registers a signature under its category/subcategory key.
func (s *Store) addSignature(sig *model.CategorySignature) {
	key := signatureKey(sig.Category, sig.Subcategory)
	s.signatures = append(s.signatures, sig)
	s.signatureByID[key] = sig
}

func signatureKey(category, subcategory string) string {
	return strings.ToLower(category + "_" + subcategory)
}
