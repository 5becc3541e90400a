package reference

import (
	"time"

	"github.com/ledgermill/classiflow/internal/model"
)

// seedMerchantPatterns returns the built-in merchant patterns. Ordering
// matters: lookup scans in this order and the first alias hit wins, so more
// specific merchants come before generic ones.
func seedMerchantPatterns() []*model.MerchantPattern {
	now := time.Now()

	patterns := []*model.MerchantPattern{
		{
			ID:                    "microsoft",
			CanonicalName:         "Microsoft",
			Aliases:               []string{"microsoft", "msft", "office 365", "azure"},
			Category:              "Technology",
			Subcategory:           "Software & SaaS",
			Confidence:            0.95,
			IsTaxDeductible:       true,
			BusinessUsePercentage: 100,
			TaxCategory:           "Business Expense",
			IsRecurring:           true,
			BillType:              "subscription",
		},
		{
			ID:                    "adobe",
			CanonicalName:         "Adobe",
			Aliases:               []string{"adobe", "creative cloud", "photoshop"},
			Category:              "Technology",
			Subcategory:           "Software & SaaS",
			Confidence:            0.95,
			IsTaxDeductible:       true,
			BusinessUsePercentage: 100,
			TaxCategory:           "Business Expense",
			IsRecurring:           true,
			BillType:              "subscription",
		},
		{
			ID:                    "aws",
			CanonicalName:         "Amazon Web Services",
			Aliases:               []string{"amazon web services", "aws", "amzn web"},
			Category:              "Technology",
			Subcategory:           "Cloud Services",
			Confidence:            0.95,
			IsTaxDeductible:       true,
			BusinessUsePercentage: 100,
			TaxCategory:           "Business Expense",
			IsRecurring:           true,
			BillType:              "subscription",
		},
		{
			ID:                    "github",
			CanonicalName:         "GitHub",
			Aliases:               []string{"github"},
			Category:              "Technology",
			Subcategory:           "Developer Tools",
			Confidence:            0.95,
			IsTaxDeductible:       true,
			BusinessUsePercentage: 100,
			TaxCategory:           "Business Expense",
			IsRecurring:           true,
			BillType:              "subscription",
		},
		{
			ID:                    "google-workspace",
			CanonicalName:         "Google Workspace",
			Aliases:               []string{"google workspace", "gsuite", "google cloud"},
			Category:              "Technology",
			Subcategory:           "Software & SaaS",
			Confidence:            0.9,
			IsTaxDeductible:       true,
			BusinessUsePercentage: 100,
			TaxCategory:           "Business Expense",
			IsRecurring:           true,
			BillType:              "subscription",
		},
		{
			ID:                    "telstra",
			CanonicalName:         "Telstra",
			Aliases:               []string{"telstra"},
			Category:              "Utilities",
			Subcategory:           "Phone & Internet",
			Confidence:            0.9,
			IsTaxDeductible:       true,
			BusinessUsePercentage: 80,
			TaxCategory:           "Business Expense",
			IsRecurring:           true,
			BillType:              "utility",
		},
		{
			ID:                    "origin-energy",
			CanonicalName:         "Origin Energy",
			Aliases:               []string{"origin energy", "origin elec"},
			Category:              "Utilities",
			Subcategory:           "Electricity & Gas",
			Confidence:            0.9,
			IsTaxDeductible:       false,
			BusinessUsePercentage: 0,
			TaxCategory:           "Personal",
			IsRecurring:           true,
			BillType:              "utility",
		},
		{
			ID:                    "netflix",
			CanonicalName:         "Netflix",
			Aliases:               []string{"netflix"},
			Category:              "Entertainment",
			Subcategory:           "Streaming",
			Confidence:            0.95,
			IsTaxDeductible:       false,
			BusinessUsePercentage: 0,
			TaxCategory:           "Personal",
			IsRecurring:           true,
			BillType:              "subscription",
		},
		{
			ID:                    "spotify",
			CanonicalName:         "Spotify",
			Aliases:               []string{"spotify"},
			Category:              "Entertainment",
			Subcategory:           "Streaming",
			Confidence:            0.95,
			IsTaxDeductible:       false,
			BusinessUsePercentage: 0,
			TaxCategory:           "Personal",
			IsRecurring:           true,
			BillType:              "subscription",
		},
		{
			ID:                    "uber",
			CanonicalName:         "Uber",
			Aliases:               []string{"uber trip", "uber *trip"},
			Category:              "Transport",
			Subcategory:           "Rideshare",
			Confidence:            0.85,
			IsTaxDeductible:       false,
			BusinessUsePercentage: 0,
			TaxCategory:           "Personal",
		},
		{
			ID:                    "uber-eats",
			CanonicalName:         "Uber Eats",
			Aliases:               []string{"uber eats", "ubereats"},
			Category:              "Food & Dining",
			Subcategory:           "Delivery",
			Confidence:            0.9,
			IsTaxDeductible:       false,
			BusinessUsePercentage: 0,
			TaxCategory:           "Personal",
		},
		{
			ID:                    "woolworths",
			CanonicalName:         "Woolworths",
			Aliases:               []string{"woolworths", "woolies"},
			Category:              "Groceries",
			Subcategory:           "Supermarket",
			Confidence:            0.95,
			IsTaxDeductible:       false,
			BusinessUsePercentage: 0,
			TaxCategory:           "Personal",
		},
		{
			ID:                    "coles",
			CanonicalName:         "Coles",
			Aliases:               []string{"coles"},
			Category:              "Groceries",
			Subcategory:           "Supermarket",
			Confidence:            0.95,
			IsTaxDeductible:       false,
			BusinessUsePercentage: 0,
			TaxCategory:           "Personal",
		},
		{
			ID:                    "officeworks",
			CanonicalName:         "Officeworks",
			Aliases:               []string{"officeworks"},
			Category:              "Office",
			Subcategory:           "Office Supplies",
			Confidence:            0.85,
			IsTaxDeductible:       true,
			BusinessUsePercentage: 90,
			TaxCategory:           "Business Expense",
		},
		{
			ID:                    "qantas",
			CanonicalName:         "Qantas",
			Aliases:               []string{"qantas"},
			Category:              "Travel",
			Subcategory:           "Flights",
			Confidence:            0.85,
			IsTaxDeductible:       true,
			BusinessUsePercentage: 70,
			TaxCategory:           "Business Expense",
		},
	}

	for _, p := range patterns {
		p.LastUpdated = now
	}
	return patterns
}

// seedCategorySignatures returns the built-in keyword signatures, checked
// only after no merchant pattern matches.
func seedCategorySignatures() []*model.CategorySignature {
	return []*model.CategorySignature{
		{
			Category:          "Technology",
			Subcategory:       "Software & SaaS",
			Keywords:          []string{"software", "saas", "subscription", "license", "hosting"},
			RegexPatterns:     []string{`\bapp\b`, `\.io\b`, `\.com\b`},
			Confidence:        0.75,
			BusinessRelevance: 0.9,
			IsTaxDeductible:   true,
		},
		{
			Category:          "Utilities",
			Subcategory:       "Household Bills",
			Keywords:          []string{"electricity", "gas", "water", "internet", "broadband", "energy"},
			Confidence:        0.8,
			BusinessRelevance: 0.3,
			IsTaxDeductible:   false,
		},
		{
			Category:          "Food & Dining",
			Subcategory:       "Restaurants & Cafes",
			Keywords:          []string{"restaurant", "cafe", "coffee", "pizza", "sushi", "bakery"},
			Confidence:        0.7,
			BusinessRelevance: 0.1,
			IsTaxDeductible:   false,
		},
		{
			Category:          "Transport",
			Subcategory:       "Fuel & Parking",
			Keywords:          []string{"fuel", "petrol", "parking", "toll", "servo"},
			Confidence:        0.75,
			BusinessRelevance: 0.4,
			IsTaxDeductible:   false,
		},
		{
			Category:          "Office",
			Subcategory:       "Office Supplies",
			Keywords:          []string{"stationery", "printing", "paper", "ink", "toner"},
			Confidence:        0.7,
			BusinessRelevance: 0.9,
			IsTaxDeductible:   true,
		},
		{
			Category:          "Professional Services",
			Subcategory:       "Advisory",
			Keywords:          []string{"accounting", "legal", "consulting", "bookkeeping", "advisory"},
			Confidence:        0.75,
			BusinessRelevance: 0.95,
			IsTaxDeductible:   true,
		},
		{
			Category:          "Health",
			Subcategory:       "Medical",
			Keywords:          []string{"pharmacy", "chemist", "medical", "dental", "doctor"},
			Confidence:        0.75,
			BusinessRelevance: 0.0,
			IsTaxDeductible:   false,
		},
	}
}
