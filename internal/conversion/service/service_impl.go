package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	affiliatedomain "github.com/trackmint/trackmint/internal/affiliate/domain"
	auditdomain "github.com/trackmint/trackmint/internal/audit/domain"
	"github.com/trackmint/trackmint/internal/clock"
	commissiondomain "github.com/trackmint/trackmint/internal/commission/domain"
	"github.com/trackmint/trackmint/internal/conversion/domain"
	"github.com/trackmint/trackmint/internal/events"
	"github.com/trackmint/trackmint/internal/observability/metrics"
	"github.com/trackmint/trackmint/internal/observability/obscontext"
	programdomain "github.com/trackmint/trackmint/internal/program/domain"
	"github.com/trackmint/trackmint/internal/rating"
	referraldomain "github.com/trackmint/trackmint/internal/referral/domain"
	tierdomain "github.com/trackmint/trackmint/internal/tier/domain"
	pkgdb "github.com/trackmint/trackmint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// dedupeWindow bounds the fallback duplicate match for submissions without
// an idempotency key.
const dedupeWindow = 10 * time.Minute

const defaultCurrency = "USD"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Referrals   referraldomain.Service
	Programs    programdomain.Service
	Affiliates  affiliatedomain.Service
	Tiers       tierdomain.Service
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
	referrals   referraldomain.Service
	programs    programdomain.Service
	affiliates  affiliatedomain.Service
	tiers       tierdomain.Service
	commissions commissiondomain.Service
	outbox      events.Outbox
	audit       auditdomain.Service
	clock       clock.Clock
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("conversion.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		referrals:   p.Referrals,
		programs:    p.Programs,
		affiliates:  p.Affiliates,
		tiers:       p.Tiers,
		commissions: p.Commissions,
		outbox:      p.Outbox,
		audit:       p.Audit,
		clock:       p.Clock,
		metrics:     p.Metrics,
	}
}

func (s *Service) Intake(ctx context.Context, req domain.IntakeRequest) (domain.IntakeResult, error) {
	if !domain.ValidType(req.ConversionType) {
		return domain.IntakeResult{}, domain.ErrInvalidType
	}
	if req.ConversionValue.IsNegative() {
		return domain.IntakeResult{}, domain.ErrInvalidValue
	}
	session := strings.TrimSpace(req.SessionID)
	if session == "" {
		return domain.IntakeResult{}, domain.ErrInvalidSession
	}

	link, err := s.referrals.Resolve(ctx, req.Code)
	if err != nil {
		return domain.IntakeResult{}, err
	}
	if !link.Active {
		return domain.IntakeResult{}, domain.ErrInactiveLink
	}
	if link.Expired(s.clock.Now()) {
		return domain.IntakeResult{}, referraldomain.ErrExpiredLink
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, key)
		if err != nil {
			return domain.IntakeResult{}, err
		}
		if existing != nil {
			return domain.IntakeResult{Conversion: *existing, Duplicate: true}, nil
		}
	} else {
		existing, err := s.repo.FindRecentDuplicate(ctx, s.db, link.ID, session, req.ConversionType, s.clock.Now().Add(-dedupeWindow))
		if err != nil {
			return domain.IntakeResult{}, err
		}
		if existing != nil {
			return domain.IntakeResult{Conversion: *existing, Duplicate: true}, nil
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	metadata := datatypes.JSONMap{}
	if req.Metadata != nil {
		metadata = datatypes.JSONMap(req.Metadata)
	}

	var idempotencyKey *string
	if key != "" {
		idempotencyKey = &key
	}
	var customerID *string
	if customer := strings.TrimSpace(req.CustomerID); customer != "" {
		customerID = &customer
	}

	now := s.clock.Now()
	conversion := domain.Conversion{
		ID:              s.genID.Generate(),
		LinkID:          link.ID,
		AffiliateID:     link.AffiliateID,
		ProgramID:       link.ProgramID,
		SessionID:       session,
		CustomerID:      customerID,
		ConversionType:  req.ConversionType,
		ConversionValue: req.ConversionValue,
		Currency:        currency,
		Status:          domain.StatusPending,
		IdempotencyKey:  idempotencyKey,
		Metadata:        metadata,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &conversion); err != nil {
			return err
		}
		dedupe := fmt.Sprintf("%s:%s", events.ConversionRecorded, conversion.ID.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     events.ConversionRecorded,
			AggregateType: events.AggregateConversion,
			AggregateID:   conversion.ID.String(),
			Payload: datatypes.JSONMap{
				"conversion_id": conversion.ID.String(),
				"link_id":       link.ID.String(),
				"type":          string(conversion.ConversionType),
				"value":         conversion.ConversionValue.StringFixed(2),
			},
			DedupeKey: &dedupe,
			CreatedAt: now,
		})
	})
	if err != nil {
		// Two submissions racing on the same key; the index wins, replay the
		// surviving row.
		if key != "" && pkgdb.IsDuplicateKeyErr(err) {
			existing, ferr := s.repo.FindByIdempotencyKey(ctx, s.db, key)
			if ferr == nil && existing != nil {
				return domain.IntakeResult{Conversion: *existing, Duplicate: true}, nil
			}
		}
		return domain.IntakeResult{}, err
	}

	s.metrics.RecordConversionIngested(ctx, string(conversion.ConversionType))
	s.log.Info("conversion recorded",
		zap.String("conversion_id", conversion.ID.String()),
		zap.String("link_id", link.ID.String()),
		zap.String("type", string(conversion.ConversionType)))
	return domain.IntakeResult{Conversion: conversion}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Conversion, error) {
	conversion, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Conversion{}, err
	}
	if conversion == nil {
		return domain.Conversion{}, domain.ErrNotFound
	}
	return *conversion, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Conversion, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	conversions := make([]domain.Conversion, 0, len(items))
	for _, item := range items {
		conversions = append(conversions, *item)
	}
	return conversions, nil
}

func (s *Service) Validate(ctx context.Context, id snowflake.ID) (domain.Conversion, error) {
	conversion, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Conversion{}, err
	}
	if conversion == nil {
		return domain.Conversion{}, domain.ErrNotFound
	}
	if !conversion.CanTransitionTo(domain.StatusValidated) {
		return domain.Conversion{}, fmt.Errorf("%w: %s -> validated", domain.ErrInvalidStateTransition, conversion.Status)
	}

	program, err := s.programs.Get(ctx, conversion.ProgramID)
	if err != nil {
		return domain.Conversion{}, err
	}
	ratingCfg, err := s.programs.RatingConfig(program)
	if err != nil {
		return domain.Conversion{}, err
	}

	affiliate, err := s.affiliates.Get(ctx, conversion.AffiliateID)
	if err != nil {
		return domain.Conversion{}, err
	}
	resolution, err := s.tiers.ResolveMultiplier(ctx, affiliate.TierID)
	if err != nil {
		return domain.Conversion{}, err
	}

	baseAmount, err := rating.ComputeBaseAmount(ratingCfg, conversion.ConversionValue)
	if err != nil {
		return domain.Conversion{}, err
	}
	finalAmount := baseAmount.Mul(resolution.Multiplier).Round(2)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, id, domain.StatusPending, domain.StatusValidated, conversion.Version, s.clock.Now(), actorRef(ctx))
		if err != nil {
			return err
		}
		if affected == 0 {
			current, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if current.Status != domain.StatusPending {
				return fmt.Errorf("%w: %s -> validated", domain.ErrInvalidStateTransition, current.Status)
			}
			return domain.ErrConcurrentModification
		}

		if err := s.commissions.CreateTx(ctx, tx, &commissiondomain.Commission{
			ConversionID:     id,
			AffiliateID:      conversion.AffiliateID,
			ProgramID:        conversion.ProgramID,
			TierID:           resolution.TierID,
			BaseAmount:       baseAmount,
			TierMultiplier:   resolution.Multiplier,
			FinalAmount:      finalAmount,
			Currency:         conversion.Currency,
			CommissionConfig: program.CommissionConfig,
		}); err != nil {
			return err
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "conversion.validate",
			EntityType: "conversion",
			EntityID:   id.String(),
			Detail: map[string]any{
				"base_amount":     baseAmount.StringFixed(2),
				"tier_multiplier": resolution.Multiplier.String(),
				"final_amount":    finalAmount.StringFixed(2),
			},
		}); err != nil {
			return err
		}

		dedupe := fmt.Sprintf("%s:%s", events.ConversionValidated, id.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     events.ConversionValidated,
			AggregateType: events.AggregateConversion,
			AggregateID:   id.String(),
			Payload: datatypes.JSONMap{
				"conversion_id": id.String(),
				"final_amount":  finalAmount.StringFixed(2),
			},
			DedupeKey: &dedupe,
			CreatedAt: s.clock.Now(),
		})
	})
	if err != nil {
		return domain.Conversion{}, err
	}

	// Advisory counter, outside the transaction on purpose.
	s.referrals.RecordConversion(ctx, conversion.LinkID)
	s.metrics.RecordConversionValidated(ctx)

	s.log.Info("conversion validated",
		zap.String("conversion_id", id.String()),
		zap.String("final_amount", finalAmount.StringFixed(2)))
	return s.Get(ctx, id)
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID) (domain.Conversion, error) {
	conversion, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Conversion{}, err
	}
	if conversion == nil {
		return domain.Conversion{}, domain.ErrNotFound
	}
	if !conversion.CanTransitionTo(domain.StatusRejected) {
		return domain.Conversion{}, fmt.Errorf("%w: %s -> rejected", domain.ErrInvalidStateTransition, conversion.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, id, domain.StatusPending, domain.StatusRejected, conversion.Version, s.clock.Now(), actorRef(ctx))
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrentModification
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "conversion.reject",
			EntityType: "conversion",
			EntityID:   id.String(),
		}); err != nil {
			return err
		}

		dedupe := fmt.Sprintf("%s:%s", events.ConversionRejected, id.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     events.ConversionRejected,
			AggregateType: events.AggregateConversion,
			AggregateID:   id.String(),
			Payload:       datatypes.JSONMap{"conversion_id": id.String()},
			DedupeKey:     &dedupe,
			CreatedAt:     s.clock.Now(),
		})
	})
	if err != nil {
		return domain.Conversion{}, err
	}

	return s.Get(ctx, id)
}

// actorRef returns the request actor as a nullable reviewer reference.
func actorRef(ctx context.Context) *string {
	if actor := obscontext.ActorIDFromContext(ctx); actor != "" {
		return &actor
	}
	return nil
}
