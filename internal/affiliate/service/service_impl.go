package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/affiliate/domain"
	auditdomain "github.com/trackmint/trackmint/internal/audit/domain"
	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/events"
	tierdomain "github.com/trackmint/trackmint/internal/tier/domain"
	pkgdb "github.com/trackmint/trackmint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Tiers  tierdomain.Service
	Outbox events.Outbox
	Audit  auditdomain.Service
	Clock  clock.Clock
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	tiers  tierdomain.Service
	outbox events.Outbox
	audit  auditdomain.Service
	clock  clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("affiliate.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		tiers:  p.Tiers,
		outbox: p.Outbox,
		audit:  p.Audit,
		clock:  p.Clock,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.Affiliate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Affiliate{}, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Affiliate{}, domain.ErrInvalidEmail
	}

	details := datatypes.JSONMap{}
	if req.PayoutDetails != nil {
		details = datatypes.JSONMap(req.PayoutDetails)
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	affiliate := domain.Affiliate{
		ID:            id,
		Code:          fmt.Sprintf("AFF-%s", id.Base36()),
		Name:          name,
		Email:         email,
		Status:        domain.StatusPending,
		PayoutMethod:  req.PayoutMethod,
		PayoutDetails: details,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &affiliate); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Affiliate{}, domain.ErrDuplicateEmail
		}
		return domain.Affiliate{}, err
	}

	s.log.Info("affiliate registered",
		zap.String("affiliate_id", affiliate.ID.String()),
		zap.String("code", affiliate.Code))
	return affiliate, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Affiliate, error) {
	affiliate, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affiliate == nil {
		return domain.Affiliate{}, domain.ErrNotFound
	}
	return *affiliate, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.Affiliate, error) {
	affiliate, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affiliate == nil {
		return domain.Affiliate{}, domain.ErrNotFound
	}
	return *affiliate, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Affiliate, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	affiliates := make([]domain.Affiliate, 0, len(items))
	for _, item := range items {
		affiliates = append(affiliates, *item)
	}
	return affiliates, nil
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID) (domain.Affiliate, error) {
	affiliate, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affiliate == nil {
		return domain.Affiliate{}, domain.ErrNotFound
	}
	if !affiliate.CanTransitionTo(domain.StatusApproved) {
		return domain.Affiliate{}, fmt.Errorf("%w: %s -> approved", domain.ErrInvalidStateTransition, affiliate.Status)
	}

	tierID := affiliate.TierID
	if tierID == nil {
		resolution, err := s.tiers.ResolveMultiplier(ctx, nil)
		if err != nil {
			return domain.Affiliate{}, err
		}
		tierID = resolution.TierID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, id, affiliate.Status, domain.StatusApproved, tierID, affiliate.Version)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrentModification
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "affiliate.approve",
			EntityType: "affiliate",
			EntityID:   id.String(),
		}); err != nil {
			return err
		}

		dedupe := fmt.Sprintf("affiliate.approved:%s", id.String())
		return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
			ID:            s.genID.Generate(),
			EventType:     events.AffiliateApproved,
			AggregateType: events.AggregateAffiliate,
			AggregateID:   id.String(),
			Payload:       datatypes.JSONMap{"affiliate_id": id.String()},
			DedupeKey:     &dedupe,
			CreatedAt:     s.clock.Now(),
		})
	})
	if err != nil {
		return domain.Affiliate{}, err
	}

	s.log.Info("affiliate approved", zap.String("affiliate_id", id.String()))
	return s.Get(ctx, id)
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID) (domain.Affiliate, error) {
	affiliate, err := s.transition(ctx, id, domain.StatusRejected, "affiliate.reject")
	if err != nil {
		return domain.Affiliate{}, err
	}
	return affiliate, nil
}

func (s *Service) Suspend(ctx context.Context, id snowflake.ID) (domain.Affiliate, error) {
	return s.transition(ctx, id, domain.StatusSuspended, "affiliate.suspend")
}

func (s *Service) Reinstate(ctx context.Context, id snowflake.ID) (domain.Affiliate, error) {
	return s.transition(ctx, id, domain.StatusApproved, "affiliate.reinstate")
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, to domain.Status, action string) (domain.Affiliate, error) {
	affiliate, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affiliate == nil {
		return domain.Affiliate{}, domain.ErrNotFound
	}
	if !affiliate.CanTransitionTo(to) {
		return domain.Affiliate{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, affiliate.Status, to)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateStatus(ctx, tx, id, affiliate.Status, to, nil, affiliate.Version)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrentModification
		}

		if err := s.audit.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     action,
			EntityType: "affiliate",
			EntityID:   id.String(),
		}); err != nil {
			return err
		}

		if to == domain.StatusRejected {
			dedupe := fmt.Sprintf("affiliate.rejected:%s", id.String())
			return s.outbox.StageTx(ctx, tx, &events.OutboxEvent{
				ID:            s.genID.Generate(),
				EventType:     events.AffiliateRejected,
				AggregateType: events.AggregateAffiliate,
				AggregateID:   id.String(),
				Payload:       datatypes.JSONMap{"affiliate_id": id.String()},
				DedupeKey:     &dedupe,
				CreatedAt:     s.clock.Now(),
			})
		}
		return nil
	})
	if err != nil {
		return domain.Affiliate{}, err
	}

	return s.Get(ctx, id)
}

func (s *Service) AssignTier(ctx context.Context, id, tierID snowflake.ID) (domain.Affiliate, error) {
	affiliate, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affiliate == nil {
		return domain.Affiliate{}, domain.ErrNotFound
	}

	// Resolution fails when the tier does not exist.
	if _, err := s.tiers.ResolveMultiplier(ctx, &tierID); err != nil {
		return domain.Affiliate{}, err
	}

	affected, err := s.repo.UpdateTier(ctx, s.db, id, tierID, affiliate.Version)
	if err != nil {
		return domain.Affiliate{}, err
	}
	if affected == 0 {
		return domain.Affiliate{}, domain.ErrConcurrentModification
	}

	s.log.Info("affiliate tier assigned",
		zap.String("affiliate_id", id.String()),
		zap.String("tier_id", tierID.String()))
	return s.Get(ctx, id)
}
