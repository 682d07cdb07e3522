package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	pkgdb "github.com/trackmint/trackmint/pkg/db"

	"github.com/trackmint/trackmint/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tier.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTierRequest) (domain.Tier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Tier{}, domain.ErrInvalidName
	}
	if req.Level < 0 {
		return domain.Tier{}, domain.ErrInvalidLevel
	}
	if req.CommissionMultiplier.IsNegative() {
		return domain.Tier{}, domain.ErrInvalidMultiplier
	}

	now := time.Now().UTC()
	tier := domain.Tier{
		ID:                   s.genID.Generate(),
		Name:                 name,
		Level:                req.Level,
		CommissionMultiplier: req.CommissionMultiplier,
		Requirements:         toJSONMap(req.Requirements),
		Benefits:             toJSONMap(req.Benefits),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Insert(ctx, s.db, &tier); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Tier{}, domain.ErrDuplicateTier
		}
		return domain.Tier{}, err
	}

	return tier, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Tier, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	tiers := make([]domain.Tier, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tiers = append(tiers, *item)
	}
	return tiers, nil
}

func (s *Service) ResolveMultiplier(ctx context.Context, assigned *snowflake.ID) (domain.Resolution, error) {
	if assigned != nil && *assigned != 0 {
		tier, err := s.repo.FindByID(ctx, s.db, *assigned)
		if err != nil {
			return domain.Resolution{}, err
		}
		if tier == nil {
			s.log.Error("assigned tier no longer exists", zap.String("tier_id", assigned.String()))
			return domain.Resolution{}, fmt.Errorf("%w: tier %s", domain.ErrTierResolution, assigned.String())
		}
		return domain.Resolution{TierID: &tier.ID, Multiplier: tier.CommissionMultiplier}, nil
	}

	tier, err := s.repo.FindDefault(ctx, s.db)
	if err != nil {
		return domain.Resolution{}, err
	}
	if tier == nil {
		// No tier ladder configured; every affiliate still resolves.
		return domain.Resolution{Multiplier: decimal.NewFromInt(1)}, nil
	}
	return domain.Resolution{TierID: &tier.ID, Multiplier: tier.CommissionMultiplier}, nil
}

func toJSONMap(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(m)
}
