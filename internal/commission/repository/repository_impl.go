package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/trackmint/trackmint/internal/commission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const commissionColumns = `id, conversion_id, affiliate_id, program_id, tier_id, base_amount, tier_multiplier, final_amount, currency, status, payout_id, commission_config, approved_by, approved_at, version, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, commission *domain.Commission) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO commissions (`+commissionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		commission.ID,
		commission.ConversionID,
		commission.AffiliateID,
		commission.ProgramID,
		commission.TierID,
		commission.BaseAmount,
		commission.TierMultiplier,
		commission.FinalAmount,
		commission.Currency,
		commission.Status,
		commission.PayoutID,
		commission.CommissionConfig,
		commission.ApprovedBy,
		commission.ApprovedAt,
		commission.Version,
		commission.CreatedAt,
		commission.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commission, error) {
	var commission domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT `+commissionColumns+` FROM commissions WHERE id = ?`,
		id,
	).Scan(&commission).Error
	if err != nil {
		return nil, err
	}
	if commission.ID == 0 {
		return nil, nil
	}
	return &commission, nil
}

func (r *repo) FindByConversion(ctx context.Context, db *gorm.DB, conversionID snowflake.ID) (*domain.Commission, error) {
	var commission domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT `+commissionColumns+` FROM commissions WHERE conversion_id = ?`,
		conversionID,
	).Scan(&commission).Error
	if err != nil {
		return nil, err
	}
	if commission.ID == 0 {
		return nil, nil
	}
	return &commission, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Commission, error) {
	stmt := db.WithContext(ctx).Model(&domain.Commission{})
	if filter.AffiliateID != nil {
		stmt = stmt.Where("affiliate_id = ?", *filter.AffiliateID)
	}
	if filter.ProgramID != nil {
		stmt = stmt.Where("program_id = ?", *filter.ProgramID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.PageToken != "" {
		cursor, err := filter.Cursor()
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var commissions []*domain.Commission
	err := stmt.Order("created_at desc, id desc").
		Limit(filter.Limit() + 1).
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, version int64, at time.Time, actor *string) (int64, error) {
	if to == domain.StatusApproved {
		result := db.WithContext(ctx).Exec(
			`UPDATE commissions SET status = ?, approved_by = ?, approved_at = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ? AND version = ?`,
			to,
			actor,
			at,
			id,
			from,
			version,
		)
		return result.RowsAffected, result.Error
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE commissions SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND version = ?`,
		to,
		id,
		from,
		version,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) FindEligible(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, start, end time.Time) ([]*domain.Commission, error) {
	var commissions []*domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT `+commissionColumns+` FROM commissions
		 WHERE affiliate_id = ? AND status = ? AND payout_id IS NULL AND created_at >= ? AND created_at < ?
		 ORDER BY created_at ASC, id ASC`,
		affiliateID,
		domain.StatusApproved,
		start,
		end,
	).Scan(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *repo) EligibleAffiliateIDs(ctx context.Context, db *gorm.DB, start, end time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT affiliate_id FROM commissions
		 WHERE status = ? AND payout_id IS NULL AND created_at >= ? AND created_at < ?`,
		domain.StatusApproved,
		start,
		end,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) LinkToPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE commissions SET payout_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id IN ? AND status = ? AND payout_id IS NULL`,
		payoutID,
		ids,
		domain.StatusApproved,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkPaidByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE commissions SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE payout_id = ? AND status = ?`,
		domain.StatusPaid,
		payoutID,
		domain.StatusApproved,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UnlinkFromPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) (int64, error) {
	// Also resets paid rows to approved; cancel must leave no row pointing
	// at the payout, whatever order the payout's statements ran in.
	result := db.WithContext(ctx).Exec(
		`UPDATE commissions SET payout_id = NULL, status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE payout_id = ? AND status IN (?, ?)`,
		domain.StatusApproved,
		payoutID,
		domain.StatusApproved,
		domain.StatusPaid,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Summarize(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) (domain.EarningsSummary, error) {
	var rows []struct {
		Status domain.Status
		Total  decimal.Decimal
		Count  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COALESCE(SUM(final_amount), 0) AS total, COUNT(*) AS count
		 FROM commissions WHERE affiliate_id = ? GROUP BY status`,
		affiliateID,
	).Scan(&rows).Error
	if err != nil {
		return domain.EarningsSummary{}, err
	}

	summary := domain.EarningsSummary{AffiliateID: affiliateID}
	for _, row := range rows {
		summary.TotalEntries += row.Count
		switch row.Status {
		case domain.StatusPending:
			summary.PendingAmount = row.Total
		case domain.StatusApproved:
			summary.ApprovedAmount = row.Total
		case domain.StatusPaid:
			summary.PaidAmount = row.Total
		}
	}
	return summary, nil
}
