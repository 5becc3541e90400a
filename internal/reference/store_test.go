package reference

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermill/classiflow/internal/model"
)

func TestLookupMerchantPattern(t *testing.T) {
	store := NewStore()

	result, ok := store.Lookup("NETFLIX.COM subscription", 15.99, "Netflix")
	require.True(t, ok)
	assert.Equal(t, "Entertainment", result.Category)
	assert.Equal(t, "Streaming", result.Subcategory)
	assert.Equal(t, model.SourceReference, result.Source)
	assert.True(t, result.IsBill)
	assert.InDelta(t, 0.95, result.Confidence, 0.001)
}

func TestLookupMatchesCaseInsensitively(t *testing.T) {
	store := NewStore()

	result, ok := store.Lookup("WOOLWORTHS 1234 SYDNEY", 84.20, "")
	require.True(t, ok)
	assert.Equal(t, "Groceries", result.Category)
}

func TestLookupIncrementsMatchCount(t *testing.T) {
	store := NewStore()

	_, ok := store.Lookup("Spotify premium", 11.99, "")
	require.True(t, ok)
	_, ok = store.Lookup("Spotify premium", 11.99, "")
	require.True(t, ok)

	snap := store.Dump()
	for _, p := range snap.MerchantPatterns {
		if p.ID == "spotify" {
			assert.Equal(t, 2, p.MatchCount)
			return
		}
	}
	t.Fatal("spotify pattern not found")
}

func TestLookupFirstMatchWins(t *testing.T) {
	store := NewStore()

	// "aws" appears before any generic signature; a description matching
	// multiple aliases resolves to the earliest registered pattern.
	result, ok := store.Lookup("AWS hosting subscription", 50, "Amazon Web Services")
	require.True(t, ok)
	assert.Equal(t, "Cloud Services", result.Subcategory)
	assert.Equal(t, model.SourceReference, result.Source)
}

func TestSignatureMatchRequiresMajorityOfKeywords(t *testing.T) {
	store := NewStore()

	// Utilities signature has 6 keywords; threshold is 3.
	_, ok := store.Lookup("electricity bill", 120, "")
	assert.False(t, ok, "one keyword hit should not match")

	result, ok := store.Lookup("electricity gas and water bill", 120, "")
	require.True(t, ok)
	assert.Equal(t, "Utilities", result.Category)
	assert.Equal(t, model.SourcePattern, result.Source)
	// Confidence scales with the hit ratio: 0.8 * 3/6.
	assert.InDelta(t, 0.4, result.Confidence, 0.001)
}

func TestRegexOnlySignatureKeepsFiniteConfidence(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Load(Snapshot{
		CategorySignatures: []model.CategorySignature{
			{Category: "Transfers", RegexPatterns: []string{`\btransfer to \d+\b`}, Confidence: 0.65},
		},
	}))

	result, ok := store.Lookup("TRANSFER TO 12345678", 200, "")
	require.True(t, ok)
	assert.Equal(t, "Transfers", result.Category)
	assert.InDelta(t, 0.65, result.Confidence, 0.001)
}

func TestLookupNoMatch(t *testing.T) {
	store := NewStore()

	_, ok := store.Lookup("ZZQX UNKNOWN VENDOR 991", 42.00, "")
	assert.False(t, ok)
}

func TestRecordCorrectionStrengthensExistingPattern(t *testing.T) {
	store := NewStore()

	corr := model.Correction{Category: "Travel", Subcategory: "Flights", IsTaxDeductible: true, BusinessUsePercentage: 100, TaxCategory: "Business Expense"}
	store.RecordCorrection("t1", "Qantas flight to Melbourne", 450, corr, model.ClassificationResult{})

	conf, ok := store.PatternConfidence("qantas")
	require.True(t, ok)
	assert.InDelta(t, 0.90, conf, 0.001)

	result, found := store.Lookup("QANTAS AIRWAYS", 450, "")
	require.True(t, found)
	assert.Equal(t, model.SourceLearned, result.Source)
	assert.Equal(t, float64(100), result.BusinessUsePercentage)
}

func TestRecordCorrectionConfidenceCapped(t *testing.T) {
	store := NewStore()

	corr := model.Correction{Category: "Travel"}
	for i := 0; i < 10; i++ {
		store.RecordCorrection("t1", "Qantas flight", 450, corr, model.ClassificationResult{})
	}

	conf, ok := store.PatternConfidence("qantas")
	require.True(t, ok)
	assert.InDelta(t, 0.95, conf, 0.001)
}

func TestRecordCorrectionCreatesLearnedPattern(t *testing.T) {
	store := NewStore()

	corr := model.Correction{Category: "Education", Subcategory: "Courses"}
	store.RecordCorrection("t2", "Udemy course purchase", 19.99, corr, model.ClassificationResult{})

	conf, ok := store.PatternConfidence("udemy")
	require.True(t, ok)
	assert.InDelta(t, 0.7, conf, 0.001)

	result, found := store.Lookup("UDEMY course", 19.99, "Udemy")
	require.True(t, found)
	assert.Equal(t, "Education", result.Category)
	assert.Equal(t, model.SourceLearned, result.Source)

	cov := store.Coverage()
	assert.Equal(t, 1, cov.LearnedPatterns)
}

func TestRecordCorrectionCreatesSignature(t *testing.T) {
	store := NewStore()

	before := store.Coverage().CategorySignatures
	corr := model.Correction{Category: "Hobbies", Subcategory: "Climbing"}
	store.RecordCorrection("t3", "Bouldering gym casual entry pass", 28, corr, model.ClassificationResult{})

	assert.Equal(t, before+1, store.Coverage().CategorySignatures)
}

func TestExtractMerchantNameSkipsStopwords(t *testing.T) {
	assert.Equal(t, "Telstra", extractMerchantName("The Telstra monthly bill"))
	assert.Equal(t, "", extractMerchantName("POS 1234 WITHDRAWAL"))
}

func TestExtractKeywordsCapped(t *testing.T) {
	kws := extractKeywords("alpha bravo charlie delta echo foxtrot golf hotel")
	assert.Len(t, kws, 5)
	assert.NotContains(t, kws, "the")
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore()
	store.RecordCorrection("t1", "Udemy course", 19.99, model.Correction{Category: "Education"}, model.ClassificationResult{})

	data, err := store.Export()
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.NotEmpty(t, snap.MerchantPatterns)
	assert.Len(t, snap.RecentLearningEvents, 1)

	restored := NewStore()
	require.NoError(t, restored.Import(data))

	conf, ok := restored.PatternConfidence("udemy")
	require.True(t, ok)
	assert.InDelta(t, 0.7, conf, 0.001)

	// Insertion order survives the round trip.
	result, found := restored.Lookup("NETFLIX.COM", 15.99, "")
	require.True(t, found)
	assert.Equal(t, "Entertainment", result.Category)
}

func TestImportRejectsEmptySnapshot(t *testing.T) {
	store := NewStore()
	err := store.Import([]byte(`{"merchantPatterns": [], "categorySignatures": []}`))
	assert.Error(t, err)
}
