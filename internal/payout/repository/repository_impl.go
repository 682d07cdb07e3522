package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/payout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const payoutColumns = `id, affiliate_id, amount, currency, status, period_start, period_end, commission_count, payment_reference, paid_at, version, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payouts (`+payoutColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payout.ID,
		payout.AffiliateID,
		payout.Amount,
		payout.Currency,
		payout.Status,
		payout.PeriodStart,
		payout.PeriodEnd,
		payout.CommissionCount,
		payout.PaymentReference,
		payout.PaidAt,
		payout.Version,
		payout.CreatedAt,
		payout.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payout, error) {
	var payout domain.Payout
	err := db.WithContext(ctx).Raw(
		`SELECT `+payoutColumns+` FROM payouts WHERE id = ?`,
		id,
	).Scan(&payout).Error
	if err != nil {
		return nil, err
	}
	if payout.ID == 0 {
		return nil, nil
	}
	return &payout, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Payout, error) {
	stmt := db.WithContext(ctx).Model(&domain.Payout{})
	if filter.AffiliateID != nil {
		stmt = stmt.Where("affiliate_id = ?", *filter.AffiliateID)
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

	var payouts []*domain.Payout
	err := stmt.Order("created_at desc, id desc").
		Limit(filter.Limit() + 1).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, version int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payouts SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND version = ?`,
		to,
		id,
		from,
		version,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, from domain.Status, reference string, paidAt time.Time, version int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payouts SET status = ?, payment_reference = ?, paid_at = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND version = ?`,
		domain.StatusPaid,
		reference,
		paidAt,
		id,
		from,
		version,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Summarize(ctx context.Context, db *gorm.DB, affiliateID *snowflake.ID) ([]domain.Summary, error) {
	query := `SELECT status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount FROM payouts`
	args := []any{}
	if affiliateID != nil {
		query += ` WHERE affiliate_id = ?`
		args = append(args, *affiliateID)
	}
	query += ` GROUP BY status`

	var summaries []domain.Summary
	err := db.WithContext(ctx).Raw(query, args...).Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
