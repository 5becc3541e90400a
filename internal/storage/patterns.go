package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ledgermill/classiflow/internal/model"
	"github.com/ledgermill/classiflow/internal/reference"
)

// SaveSnapshot persists a pattern store snapshot, replacing previous
// pattern and signature rows. Learning events are append-only.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snap reference.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM merchant_patterns"); err != nil {
		return fmt.Errorf("failed to clear merchant patterns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM category_signatures"); err != nil {
		return fmt.Errorf("failed to clear category signatures: %w", err)
	}

	for _, p := range snap.MerchantPatterns {
		aliases, marshalErr := json.Marshal(p.Aliases)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal aliases for %s: %w", p.ID, marshalErr)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO merchant_patterns
			(id, canonical_name, category, subcategory, tax_category, bill_type, aliases,
			 confidence, business_use_percentage, match_count, is_tax_deductible, is_recurring, learned, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.CanonicalName, p.Category, p.Subcategory, p.TaxCategory, p.BillType, string(aliases),
			p.Confidence, p.BusinessUsePercentage, p.MatchCount, p.IsTaxDeductible, p.IsRecurring, p.Learned, p.LastUpdated)
		if err != nil {
			return fmt.Errorf("failed to save pattern %s: %w", p.ID, err)
		}
	}

	for _, sig := range snap.CategorySignatures {
		keywords, marshalErr := json.Marshal(sig.Keywords)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal keywords: %w", marshalErr)
		}
		regexes, marshalErr := json.Marshal(sig.RegexPatterns)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal regex patterns: %w", marshalErr)
		}
		id := strings.ToLower(sig.Category + "_" + sig.Subcategory)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO category_signatures
			(id, category, subcategory, keywords, regex_patterns, confidence, business_relevance, is_tax_deductible)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, sig.Category, sig.Subcategory, string(keywords), string(regexes),
			sig.Confidence, sig.BusinessRelevance, sig.IsTaxDeductible)
		if err != nil {
			return fmt.Errorf("failed to save signature %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads persisted patterns and signatures. Returns sql.ErrNoRows
// semantics as an empty snapshot; callers keep the seeded store in that case.
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context) (reference.Snapshot, error) {
	var snap reference.Snapshot

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, canonical_name, category, subcategory, tax_category, bill_type, aliases,
		       confidence, business_use_percentage, match_count, is_tax_deductible, is_recurring, learned, last_updated
		FROM merchant_patterns ORDER BY rowid`)
	if err != nil {
		return snap, fmt.Errorf("failed to query merchant patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p model.MerchantPattern
		var aliases string
		var subcategory, taxCategory, billType sql.NullString
		if err := rows.Scan(&p.ID, &p.CanonicalName, &p.Category, &subcategory, &taxCategory, &billType, &aliases,
			&p.Confidence, &p.BusinessUsePercentage, &p.MatchCount, &p.IsTaxDeductible, &p.IsRecurring, &p.Learned, &p.LastUpdated); err != nil {
			return snap, fmt.Errorf("failed to scan pattern: %w", err)
		}
		p.Subcategory = subcategory.String
		p.TaxCategory = taxCategory.String
		p.BillType = billType.String
		if err := json.Unmarshal([]byte(aliases), &p.Aliases); err != nil {
			return snap, fmt.Errorf("failed to unmarshal aliases for %s: %w", p.ID, err)
		}
		snap.MerchantPatterns = append(snap.MerchantPatterns, p)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("failed to iterate patterns: %w", err)
	}

	sigRows, err := s.db.QueryContext(ctx, `
		SELECT category, subcategory, keywords, regex_patterns, confidence, business_relevance, is_tax_deductible
		FROM category_signatures ORDER BY rowid`)
	if err != nil {
		return snap, fmt.Errorf("failed to query category signatures: %w", err)
	}
	defer func() { _ = sigRows.Close() }()

	for sigRows.Next() {
		var sig model.CategorySignature
		var subcategory, keywords, regexes sql.NullString
		if err := sigRows.Scan(&sig.Category, &subcategory, &keywords, &regexes,
			&sig.Confidence, &sig.BusinessRelevance, &sig.IsTaxDeductible); err != nil {
			return snap, fmt.Errorf("failed to scan signature: %w", err)
		}
		sig.Subcategory = subcategory.String
		if keywords.Valid {
			if err := json.Unmarshal([]byte(keywords.String), &sig.Keywords); err != nil {
				return snap, fmt.Errorf("failed to unmarshal keywords: %w", err)
			}
		}
		if regexes.Valid && regexes.String != "" {
			if err := json.Unmarshal([]byte(regexes.String), &sig.RegexPatterns); err != nil {
				return snap, fmt.Errorf("failed to unmarshal regex patterns: %w", err)
			}
		}
		snap.CategorySignatures = append(snap.CategorySignatures, sig)
	}
	if err := sigRows.Err(); err != nil {
		return snap, fmt.Errorf("failed to iterate signatures: %w", err)
	}

	snap.ExportedAt = time.Now()
	return snap, nil
}

// AppendLearningEvent records one correction for auditing.
func (s *SQLiteStorage) AppendLearningEvent(ctx context.Context, ev model.LearningEvent) error {
	correction, err := json.Marshal(ev.Correction)
	if err != nil {
		return fmt.Errorf("failed to marshal correction: %w", err)
	}
	prior, err := json.Marshal(ev.Prior)
	if err != nil {
		return fmt.Errorf("failed to marshal prior result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learning_events (transaction_id, description, amount, correction, prior, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.TransactionID, ev.Description, ev.Amount, string(correction), string(prior), ev.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save learning event: %w", err)
	}
	return nil
}

// SaveResults upserts classification results.
func (s *SQLiteStorage) SaveResults(ctx context.Context, results []model.ClassificationResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO classifications
		(transaction_id, category, subcategory, confidence, source, tax_category,
		 is_tax_deductible, is_bill, business_use_percentage, reasoning, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			category = excluded.category,
			subcategory = excluded.subcategory,
			confidence = excluded.confidence,
			source = excluded.source,
			tax_category = excluded.tax_category,
			is_tax_deductible = excluded.is_tax_deductible,
			is_bill = excluded.is_bill,
			business_use_percentage = excluded.business_use_percentage,
			reasoning = excluded.reasoning,
			processed_at = excluded.processed_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx,
			r.TransactionID, r.Category, r.Subcategory, r.Confidence, string(r.Source), r.TaxCategory,
			r.IsTaxDeductible, r.IsBill, r.BusinessUsePercentage, r.Reasoning, r.ProcessedAt); err != nil {
			return fmt.Errorf("failed to save classification %s: %w", r.TransactionID, err)
		}
	}

	return tx.Commit()
}

// CountBySource reports how many stored classifications came from each source.
func (s *SQLiteStorage) CountBySource(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, COUNT(*) FROM classifications GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to query classification counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[source] = count
	}
	return counts, rows.Err()
}
