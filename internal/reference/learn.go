package reference

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ledgermill/classiflow/internal/model"
)

const (
	maxPatternConfidence   = 0.95
	maxSignatureConfidence = 0.9
	learnedConfidence      = 0.7
	newSignatureConfidence = 0.6
	maxExtractedKeywords   = 5
	maxStoredEvents        = 1000
)

// merchantStopwords are tokens never treated as a merchant name.
var merchantStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
}

// keywordStopwords are filler tokens excluded from signature keywords.
var keywordStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"payment": true, "purchase": true, "card": true, "debit": true,
	"credit": true, "transaction": true, "online": true,
}

// RecordCorrection applies a user correction to the store. An existing
// pattern for the merchant is strengthened; otherwise a new learned pattern
// is created. The matching category signature is updated or created so
// similar descriptions classify without the external model next time.
func (s *Store) RecordCorrection(transactionID, description string, amount float64, corr model.Correction, prior model.ClassificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordEvent(model.LearningEvent{
		Timestamp:     time.Now(),
		TransactionID: transactionID,
		Description:   description,
		Amount:        amount,
		Correction:    corr,
		Prior:         prior,
	})

	if merchant := extractMerchantName(description); merchant != "" {
		s.upsertLearnedPattern(merchant, corr)
	}

	s.upsertSignature(description, corr)
}

func (s *Store) upsertLearnedPattern(merchant string, corr model.Correction) {
	alias := strings.ToLower(merchant)

	if p := s.findByAlias(alias); p != nil {
		p.Confidence = min(maxPatternConfidence, p.Confidence+0.05)
		p.Category = corr.Category
		p.Subcategory = corr.Subcategory
		p.IsTaxDeductible = corr.IsTaxDeductible
		p.BusinessUsePercentage = corr.BusinessUsePercentage
		p.TaxCategory = corr.TaxCategory
		p.IsRecurring = corr.IsRecurring
		p.BillType = corr.BillType
		p.MatchCount++
		p.LastUpdated = time.Now()
		p.Learned = true
		return
	}

	s.addPattern(&model.MerchantPattern{
		ID:                    fmt.Sprintf("learned-%s", alias),
		CanonicalName:         merchant,
		Aliases:               []string{alias},
		Category:              corr.Category,
		Subcategory:           corr.Subcategory,
		Confidence:            learnedConfidence,
		IsTaxDeductible:       corr.IsTaxDeductible,
		BusinessUsePercentage: corr.BusinessUsePercentage,
		TaxCategory:           corr.TaxCategory,
		IsRecurring:           corr.IsRecurring,
		BillType:              corr.BillType,
		MatchCount:            1,
		LastUpdated:           time.Now(),
		Learned:               true,
	})
}

func (s *Store) upsertSignature(description string, corr model.Correction) {
	keywords := extractKeywords(description)
	if len(keywords) == 0 {
		return
	}

	key := signatureKey(corr.Category, corr.Subcategory)
	if sig, ok := s.signatureByID[key]; ok {
		for _, kw := range keywords {
			if !containsString(sig.Keywords, kw) {
				sig.Keywords = append(sig.Keywords, kw)
			}
		}
		sig.Confidence = min(maxSignatureConfidence, sig.Confidence+0.02)
		return
	}

	s.addSignature(&model.CategorySignature{
		Category:          corr.Category,
		Subcategory:       corr.Subcategory,
		Keywords:          keywords,
		Confidence:        newSignatureConfidence,
		BusinessRelevance: corr.BusinessUsePercentage / 100,
		IsTaxDeductible:   corr.IsTaxDeductible,
	})
}

func (s *Store) findByAlias(alias string) *model.MerchantPattern {
	for _, p := range s.patterns {
		if strings.ToLower(p.CanonicalName) == alias {
			return p
		}
		for _, a := range p.Aliases {
			if strings.ToLower(a) == alias {
				return p
			}
		}
	}
	return nil
}

func (s *Store) recordEvent(ev model.LearningEvent) {
	s.events = append(s.events, ev)
	if len(s.events) > maxStoredEvents {
		s.events = s.events[len(s.events)-maxStoredEvents:]
	}
}

// extractMerchantName picks the first capitalized word longer than two
// characters that is not a stopword. Returns "" when no token qualifies.
func extractMerchantName(description string) string {
	for _, word := range strings.Fields(description) {
		if len(word) <= 2 || merchantStopwords[strings.ToLower(word)] {
			continue
		}
		if isCapitalizedWord(word) {
			return word
		}
	}
	return ""
}

// isCapitalizedWord reports whether the token is an initial uppercase letter
// followed by lowercase letters only.
func isCapitalizedWord(word string) bool {
	for i, r := range word {
		if i == 0 {
			if !unicode.IsUpper(r) {
				return false
			}
			continue
		}
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// extractKeywords pulls up to five distinctive lowercase tokens from a
// description for use in a category signature.
func extractKeywords(description string) []string {
	seen := make(map[string]bool)
	var keywords []string

	for _, word := range strings.Fields(strings.ToLower(description)) {
		word = strings.Trim(word, ".,;:!?*#-")
		if len(word) <= 3 || keywordStopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == maxExtractedKeywords {
			break
		}
	}

	return keywords
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
