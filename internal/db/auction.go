package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/auction-tracker/internal/types"
)

// upsertListingSQL persists a listing by its natural key. Identity fields
// are overwritten on every sighting; enrichment fields only improve, a
// NULL never clobbers a previously stored value.
const upsertListingSQL = `
	INSERT INTO auction (
		source, source_listing_id, url, title, year, make, model, original_owner,
		mileage, sold_price, sold_date, status, excerpt, manual
	)
	VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,
		$9,$10,$11,$12,$13,$14
	)
	ON CONFLICT (source, source_listing_id) DO UPDATE
	SET url=$3,
		title=$4,
		year=$5,
		make=$6,
		model=$7,
		original_owner=$8,
		mileage=COALESCE(EXCLUDED.mileage, auction.mileage),
		sold_price=COALESCE(EXCLUDED.sold_price, auction.sold_price),
		sold_date=COALESCE(EXCLUDED.sold_date, auction.sold_date),
		status=COALESCE(EXCLUDED.status, auction.status),
		excerpt=EXCLUDED.excerpt,
		manual=COALESCE(EXCLUDED.manual, auction.manual)`

// UpsertListings persists records one by one and returns how many were
// written before the first failure.
func (db *DB) UpsertListings(ctx context.Context, records []types.ListingRecord) (int, error) {
	for i, r := range records {
		if err := db.UpsertListing(ctx, r); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

// UpsertListing persists one record by its (source, source_listing_id)
// natural key.
func (db *DB) UpsertListing(ctx context.Context, r types.ListingRecord) error {
	if r.Source == "" || r.SourceListingID == "" {
		return fmt.Errorf("listing %q has no natural key", r.Title)
	}
	_, err := db.pool.Exec(ctx, upsertListingSQL,
		r.Source,
		r.SourceListingID,
		r.URL,
		r.Title,
		r.Year,
		r.Make,
		r.Model,
		r.OriginalOwner,
		r.Mileage,
		r.SoldPrice,
		r.SoldDate,
		r.Status,
		r.Excerpt,
		r.Manual,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert listing %s/%s: %w", r.Source, r.SourceListingID, err)
	}
	return nil
}

// BackfillRow is a stored listing whose transmission is still unknown.
type BackfillRow struct {
	ID      int64
	Title   string
	Excerpt string
}

// FetchTransmissionCandidates returns listings with no transmission
// classification, newest first. source filters by marketplace when
// non-empty; limit <= 0 means no limit.
func (db *DB) FetchTransmissionCandidates(ctx context.Context, source string, limit int) ([]BackfillRow, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, COALESCE(title, ''), COALESCE(excerpt, '') FROM auction WHERE manual IS NULL`)

	args := []any{}
	if source != "" {
		sb.WriteString(" AND source = $1")
		args = append(args, source)
	}
	sb.WriteString(" ORDER BY id DESC")
	if limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	rows, err := db.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch backfill candidates: %w", err)
	}
	defer rows.Close()

	var out []BackfillRow
	for rows.Next() {
		var r BackfillRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Excerpt); err != nil {
			return nil, fmt.Errorf("failed to scan backfill candidate: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read backfill candidates: %w", err)
	}
	return out, nil
}

// UpdateTransmission records the classified transmission for one listing.
func (db *DB) UpdateTransmission(ctx context.Context, id int64, manual bool) error {
	_, err := db.pool.Exec(ctx, `UPDATE auction SET manual=$1 WHERE id=$2`, manual, id)
	if err != nil {
		return fmt.Errorf("failed to update transmission for id=%d: %w", id, err)
	}
	return nil
}
