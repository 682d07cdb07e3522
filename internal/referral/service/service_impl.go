package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/trackmint/trackmint/internal/clock"
	programdomain "github.com/trackmint/trackmint/internal/program/domain"
	"github.com/trackmint/trackmint/internal/referral/domain"
	"github.com/trackmint/trackmint/pkg/cache"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resolveCacheTTL = 30 * time.Second

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Programs programdomain.Service
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	programs programdomain.Service
	clock    clock.Clock
	resolved cache.Cache[string, domain.ReferralLink]
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("referral.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		programs: p.Programs,
		clock:    p.Clock,
		resolved: cache.NewTTLCache[string, domain.ReferralLink](),
	}
}

func (s *Service) CreateLink(ctx context.Context, req domain.CreateLinkRequest) (domain.ReferralLink, error) {
	if req.AffiliateID == 0 || req.ProgramID == 0 || strings.TrimSpace(req.DestinationURL) == "" {
		return domain.ReferralLink{}, domain.ErrInvalidRequest
	}

	program, err := s.programs.Get(ctx, req.ProgramID)
	if err != nil {
		return domain.ReferralLink{}, err
	}
	if program.Status != programdomain.StatusActive {
		return domain.ReferralLink{}, domain.ErrInvalidRequest
	}

	now := s.clock.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return domain.ReferralLink{}, domain.ErrInvalidRequest
	}

	link := domain.ReferralLink{
		ID:             s.genID.Generate(),
		AffiliateID:    req.AffiliateID,
		ProgramID:      req.ProgramID,
		Code:           newCode(now),
		DestinationURL: strings.TrimSpace(req.DestinationURL),
		Active:         true,
		ExpiresAt:      req.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, &link); err != nil {
		return domain.ReferralLink{}, err
	}

	s.log.Info("referral link created",
		zap.String("link_id", link.ID.String()),
		zap.String("code", link.Code),
		zap.String("affiliate_id", link.AffiliateID.String()))
	return link, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.ReferralLink, error) {
	link, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ReferralLink{}, err
	}
	if link == nil {
		return domain.ReferralLink{}, domain.ErrNotFound
	}
	return *link, nil
}

func (s *Service) Resolve(ctx context.Context, code string) (domain.ReferralLink, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return domain.ReferralLink{}, domain.ErrNotFound
	}

	if link, ok := s.resolved.Get(code); ok {
		return link, nil
	}

	link, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.ReferralLink{}, err
	}
	if link == nil {
		return domain.ReferralLink{}, domain.ErrNotFound
	}

	s.resolved.Set(code, *link, resolveCacheTTL)
	return *link, nil
}

func (s *Service) ListByAffiliate(ctx context.Context, affiliateID snowflake.ID) ([]domain.ReferralLink, error) {
	items, err := s.repo.ListByAffiliate(ctx, s.db, affiliateID)
	if err != nil {
		return nil, err
	}
	links := make([]domain.ReferralLink, 0, len(items))
	for _, item := range items {
		links = append(links, *item)
	}
	return links, nil
}

func (s *Service) RecordClick(ctx context.Context, code string) (domain.ReferralLink, error) {
	link, err := s.Resolve(ctx, code)
	if err != nil {
		return domain.ReferralLink{}, err
	}
	if !link.Active {
		return domain.ReferralLink{}, domain.ErrInactiveLink
	}
	if link.Expired(s.clock.Now()) {
		return domain.ReferralLink{}, domain.ErrExpiredLink
	}

	if err := s.repo.IncrementClicks(ctx, s.db, link.ID); err != nil {
		return domain.ReferralLink{}, err
	}
	link.ClickCount++
	return link, nil
}

func (s *Service) RecordConversion(ctx context.Context, id snowflake.ID) {
	if err := s.repo.IncrementConversions(ctx, s.db, id); err != nil {
		s.log.Warn("conversion counter update failed",
			zap.String("link_id", id.String()),
			zap.Error(err))
	}
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (domain.ReferralLink, error) {
	link, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ReferralLink{}, err
	}
	if link == nil {
		return domain.ReferralLink{}, domain.ErrNotFound
	}

	if _, err := s.repo.SetActive(ctx, s.db, id, false); err != nil {
		return domain.ReferralLink{}, err
	}
	s.resolved.Delete(link.Code)

	return s.Get(ctx, id)
}

// newCode mints a lowercase ULID tracking code.
func newCode(now time.Time) string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String())
}
