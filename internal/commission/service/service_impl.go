package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/trackmint/trackmint/internal/audit/domain"
	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/commission/domain"
	"github.com/trackmint/trackmint/internal/events"
	"github.com/trackmint/trackmint/internal/observability/metrics"
	"github.com/trackmint/trackmint/internal/observability/obscontext"
	pkgdb "github.com/trackmint/trackmint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Outbox  events.Outbox
	Audit   auditdomain.Service
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	outbox  events.Outbox
	audit   auditdomain.Service
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("commission.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		outbox:  p.Outbox,
		audit:   p.Audit,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Commission, error) {
	commission, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Commission{}, err
	}
	if commission == nil {
		return domain.Commission{}, domain.ErrNotFound
	}
	return *commission, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Commission, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	commissions := make([]domain.Commission, 0, len(items))
	for _, item := range items {
		commissions = append(commissions, *item)
	}
	return commissions, nil
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID) (domain.Commission, error) {
	return s.transition(ctx, id, domain.StatusApproved, events.CommissionApproved, "commission.approve")
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID) (domain.Commission, error) {
	return s.transition(ctx, id, domain.StatusRejected, events.CommissionRejected, "commission.reject")
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, to domain.Status, eventType, action string) (domain.Commission, error) {
	commission, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Commission{}, err
	}
	if commission == nil {
		return domain.Commission{}, domain.ErrNotFound
	}
	if !commission.CanTransitionTo(to) {
		return domain.Commission{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, commission.Status, to)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, id, commission.Status, to, commission.Version, s.clock.Now(), actorRef(ctx))
		if err != nil {
			return err
		}
		if affected == 0 {
			// Row moved underneath us; report the reason precisely.
			current, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if current.Status != commission.Status {
				return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, current.Status, to)
			}
			return domain.ErrConcurrentModification
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     action,
			EntityType: "commission",
			EntityID:   id.String(),
			Detail:     map[string]any{"from": string(commission.Status), "to": string(to)},
		}); err != nil {
			return err
		}

		dedupe := fmt.Sprintf("%s:%s", eventType, id.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     eventType,
			AggregateType: events.AggregateCommission,
			AggregateID:   id.String(),
			Payload: datatypes.JSONMap{
				"commission_id": id.String(),
				"affiliate_id":  commission.AffiliateID.String(),
				"final_amount":  commission.FinalAmount.StringFixed(2),
			},
			DedupeKey: &dedupe,
			CreatedAt: s.clock.Now(),
		})
	})
	if err != nil {
		return domain.Commission{}, err
	}

	s.log.Info("commission status changed",
		zap.String("commission_id", id.String()),
		zap.String("from", string(commission.Status)),
		zap.String("to", string(to)))
	return s.Get(ctx, id)
}

func (s *Service) EarningsSummary(ctx context.Context, affiliateID snowflake.ID) (domain.EarningsSummary, error) {
	return s.repo.Summarize(ctx, s.db, affiliateID)
}

func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, commission *domain.Commission) error {
	if commission.ID == 0 {
		commission.ID = s.genID.Generate()
	}
	if commission.Status == "" {
		commission.Status = domain.StatusPending
	}
	if commission.Version == 0 {
		commission.Version = 1
	}
	now := s.clock.Now()
	if commission.CreatedAt.IsZero() {
		commission.CreatedAt = now
		commission.UpdatedAt = now
	}

	if err := s.repo.Insert(ctx, tx, commission); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateConversion
		}
		return err
	}

	dedupe := fmt.Sprintf("%s:%s", events.CommissionCreated, commission.ConversionID.String())
	if err := s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
		ID:            s.genID.Generate(),
		EventType:     events.CommissionCreated,
		AggregateType: events.AggregateCommission,
		AggregateID:   commission.ID.String(),
		Payload: datatypes.JSONMap{
			"commission_id": commission.ID.String(),
			"conversion_id": commission.ConversionID.String(),
			"affiliate_id":  commission.AffiliateID.String(),
			"final_amount":  commission.FinalAmount.StringFixed(2),
		},
		DedupeKey: &dedupe,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	s.metrics.RecordCommissionCreated(ctx)
	return nil
}

func (s *Service) FindEligibleTx(ctx context.Context, tx *gorm.DB, affiliateID snowflake.ID, start, end time.Time) ([]domain.Commission, error) {
	items, err := s.repo.FindEligible(ctx, tx, affiliateID, start, end)
	if err != nil {
		return nil, err
	}
	commissions := make([]domain.Commission, 0, len(items))
	for _, item := range items {
		commissions = append(commissions, *item)
	}
	return commissions, nil
}

func (s *Service) EligibleAffiliateIDs(ctx context.Context, start, end time.Time) ([]snowflake.ID, error) {
	return s.repo.EligibleAffiliateIDs(ctx, s.db, start, end)
}

func (s *Service) LinkToPayoutTx(ctx context.Context, tx *gorm.DB, payoutID snowflake.ID, ids []snowflake.ID) error {
	affected, err := s.repo.LinkToPayout(ctx, tx, payoutID, ids)
	if err != nil {
		return err
	}
	if affected != int64(len(ids)) {
		return fmt.Errorf("%w: claimed %d of %d commissions", domain.ErrConcurrentModification, affected, len(ids))
	}
	return nil
}

func (s *Service) MarkPaidByPayoutTx(ctx context.Context, tx *gorm.DB, payoutID snowflake.ID) error {
	_, err := s.repo.MarkPaidByPayout(ctx, tx, payoutID)
	return err
}

func (s *Service) UnlinkByPayoutTx(ctx context.Context, tx *gorm.DB, payoutID snowflake.ID) error {
	_, err := s.repo.UnlinkFromPayout(ctx, tx, payoutID)
	return err
}

// actorRef returns the request actor as a nullable approver reference.
func actorRef(ctx context.Context) *string {
	if actor := obscontext.ActorIDFromContext(ctx); actor != "" {
		return &actor
	}
	return nil
}
