package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/trackmint/trackmint/internal/audit/domain"
	"github.com/trackmint/trackmint/internal/clock"
	commissiondomain "github.com/trackmint/trackmint/internal/commission/domain"
	"github.com/trackmint/trackmint/internal/events"
	"github.com/trackmint/trackmint/internal/observability/metrics"
	"github.com/trackmint/trackmint/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Commissions commissiondomain.Service
	Outbox      events.Outbox
	Audit       auditdomain.Service
	Clock       clock.Clock
	Metrics     *metrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	commissions commissiondomain.Service
	outbox      events.Outbox
	audit       auditdomain.Service
	clock       clock.Clock
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payout.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		commissions: p.Commissions,
		outbox:      p.Outbox,
		audit:       p.Audit,
		clock:       p.Clock,
		metrics:     p.Metrics,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.Payout, error) {
	if req.AffiliateID == 0 || !req.PeriodEnd.After(req.PeriodStart) {
		return domain.Payout{}, domain.ErrInvalidPeriod
	}

	var payout domain.Payout
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eligible, err := s.commissions.FindEligibleTx(ctx, tx, req.AffiliateID, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return domain.ErrNoEligibleCommissions
		}

		total := decimal.Zero
		currency := eligible[0].Currency
		ids := make([]snowflake.ID, 0, len(eligible))
		for _, c := range eligible {
			total = total.Add(c.FinalAmount)
			ids = append(ids, c.ID)
		}

		now := s.clock.Now()
		payout = domain.Payout{
			ID:              s.genID.Generate(),
			AffiliateID:     req.AffiliateID,
			Amount:          total.Round(2),
			Currency:        currency,
			Status:          domain.StatusPending,
			PeriodStart:     req.PeriodStart,
			PeriodEnd:       req.PeriodEnd,
			CommissionCount: int64(len(ids)),
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := s.repo.Insert(ctx, tx, &payout); err != nil {
			return err
		}
		if err := s.commissions.LinkToPayoutTx(ctx, tx, payout.ID, ids); err != nil {
			return err
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "payout.generate",
			EntityType: "payout",
			EntityID:   payout.ID.String(),
			Detail: map[string]any{
				"affiliate_id":     req.AffiliateID.String(),
				"amount":           payout.Amount.StringFixed(2),
				"commission_count": len(ids),
			},
		}); err != nil {
			return err
		}

		dedupe := fmt.Sprintf("%s:%s", events.PayoutGenerated, payout.ID.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     events.PayoutGenerated,
			AggregateType: events.AggregatePayout,
			AggregateID:   payout.ID.String(),
			Payload: datatypes.JSONMap{
				"payout_id":    payout.ID.String(),
				"affiliate_id": req.AffiliateID.String(),
				"amount":       payout.Amount.StringFixed(2),
			},
			DedupeKey: &dedupe,
			CreatedAt: now,
		})
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.metrics.RecordPayoutGenerated(ctx)
	s.log.Info("payout generated",
		zap.String("payout_id", payout.ID.String()),
		zap.String("affiliate_id", req.AffiliateID.String()),
		zap.String("amount", payout.Amount.StringFixed(2)),
		zap.Int64("commission_count", payout.CommissionCount))
	return payout, nil
}

func (s *Service) GenerateForPeriod(ctx context.Context, start, end time.Time) (domain.GenerateRunReport, error) {
	if !end.After(start) {
		return domain.GenerateRunReport{}, domain.ErrInvalidPeriod
	}

	report := domain.GenerateRunReport{PeriodStart: start, PeriodEnd: end}

	ids, err := s.commissions.EligibleAffiliateIDs(ctx, start, end)
	if err != nil {
		return report, err
	}

	for _, affiliateID := range ids {
		payout, err := s.Generate(ctx, domain.GenerateRequest{
			AffiliateID: affiliateID,
			PeriodStart: start,
			PeriodEnd:   end,
		})
		if err != nil {
			// Another worker may have claimed the commissions between the
			// id sweep and our transaction.
			s.log.Warn("payout generation skipped",
				zap.String("affiliate_id", affiliateID.String()),
				zap.Error(err))
			report.Skipped = append(report.Skipped, affiliateID)
			continue
		}
		report.Generated = append(report.Generated, payout)
	}
	return report, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Payout, error) {
	payout, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Payout{}, err
	}
	if payout == nil {
		return domain.Payout{}, domain.ErrNotFound
	}
	return *payout, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Payout, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	payouts := make([]domain.Payout, 0, len(items))
	for _, item := range items {
		payouts = append(payouts, *item)
	}
	return payouts, nil
}

func (s *Service) StartProcessing(ctx context.Context, id snowflake.ID) (domain.Payout, error) {
	payout, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Payout{}, err
	}
	if payout == nil {
		return domain.Payout{}, domain.ErrNotFound
	}
	if payout.Status != domain.StatusPending {
		return domain.Payout{}, fmt.Errorf("%w: %s -> processing", domain.ErrInvalidStateTransition, payout.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, id, domain.StatusPending, domain.StatusProcessing, payout.Version)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrentModification
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "payout.start_processing",
			EntityType: "payout",
			EntityID:   id.String(),
		}); err != nil {
			return err
		}

		dedupe := fmt.Sprintf("%s:%s", events.PayoutProcessing, id.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     events.PayoutProcessing,
			AggregateType: events.AggregatePayout,
			AggregateID:   id.String(),
			Payload:       datatypes.JSONMap{"payout_id": id.String()},
			DedupeKey:     &dedupe,
			CreatedAt:     s.clock.Now(),
		})
	})
	if err != nil {
		return domain.Payout{}, err
	}

	return s.Get(ctx, id)
}

func (s *Service) Process(ctx context.Context, id snowflake.ID, paymentReference string) (domain.Payout, error) {
	reference := strings.TrimSpace(paymentReference)

	payout, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Payout{}, err
	}
	if payout == nil {
		return domain.Payout{}, domain.ErrNotFound
	}
	if !payout.CanTransitionTo(domain.StatusPaid) {
		return domain.Payout{}, fmt.Errorf("%w: %s -> paid", domain.ErrInvalidStateTransition, payout.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.MarkPaid(ctx, tx, id, payout.Status, reference, s.clock.Now(), payout.Version)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrentModification
		}

		if err := s.commissions.MarkPaidByPayoutTx(ctx, tx, id); err != nil {
			return err
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "payout.process",
			EntityType: "payout",
			EntityID:   id.String(),
			Detail:     map[string]any{"payment_reference": reference},
		}); err != nil {
			return err
		}

		dedupe := fmt.Sprintf("%s:%s", events.PayoutPaid, id.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     events.PayoutPaid,
			AggregateType: events.AggregatePayout,
			AggregateID:   id.String(),
			Payload: datatypes.JSONMap{
				"payout_id":         id.String(),
				"payment_reference": reference,
				"amount":            payout.Amount.StringFixed(2),
			},
			DedupeKey: &dedupe,
			CreatedAt: s.clock.Now(),
		})
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.metrics.RecordPayoutProcessed(ctx, string(domain.StatusPaid))
	s.log.Info("payout paid",
		zap.String("payout_id", id.String()),
		zap.String("payment_reference", reference))
	return s.Get(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (domain.Payout, error) {
	payout, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Payout{}, err
	}
	if payout == nil {
		return domain.Payout{}, domain.ErrNotFound
	}
	if !payout.CanTransitionTo(domain.StatusCancelled) {
		return domain.Payout{}, fmt.Errorf("%w: %s -> cancelled", domain.ErrInvalidStateTransition, payout.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, id, payout.Status, domain.StatusCancelled, payout.Version)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrentModification
		}

		// Released commissions become eligible for the next generation run.
		if err := s.commissions.UnlinkByPayoutTx(ctx, tx, id); err != nil {
			return err
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "payout.cancel",
			EntityType: "payout",
			EntityID:   id.String(),
		}); err != nil {
			return err
		}

		dedupe := fmt.Sprintf("%s:%s", events.PayoutCancelled, id.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     events.PayoutCancelled,
			AggregateType: events.AggregatePayout,
			AggregateID:   id.String(),
			Payload:       datatypes.JSONMap{"payout_id": id.String()},
			DedupeKey:     &dedupe,
			CreatedAt:     s.clock.Now(),
		})
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.metrics.RecordPayoutProcessed(ctx, string(domain.StatusCancelled))
	return s.Get(ctx, id)
}

func (s *Service) Summary(ctx context.Context, affiliateID *snowflake.ID) ([]domain.Summary, error) {
	return s.repo.Summarize(ctx, s.db, affiliateID)
}
