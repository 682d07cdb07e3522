package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/program/domain"
	"github.com/trackmint/trackmint/internal/rating"
	pkgdb "github.com/trackmint/trackmint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultCookieWindowDays = 30

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("program.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProgramRequest) (domain.Program, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Program{}, domain.ErrInvalidName
	}
	if req.CookieWindowDays < 0 {
		return domain.Program{}, domain.ErrInvalidCookieWindow
	}
	if err := rating.ValidateConfig(req.CommissionConfig); err != nil {
		return domain.Program{}, err
	}

	cookieWindow := req.CookieWindowDays
	if cookieWindow == 0 {
		cookieWindow = defaultCookieWindowDays
	}

	configMap, err := encodeConfig(req.CommissionConfig)
	if err != nil {
		return domain.Program{}, err
	}

	now := s.clock.Now()
	program := domain.Program{
		ID:               s.genID.Generate(),
		Name:             name,
		Slug:             slug.Make(name),
		Description:      req.Description,
		Status:           domain.StatusDraft,
		CommissionType:   req.CommissionConfig.Type,
		CommissionConfig: configMap,
		CookieWindowDays: cookieWindow,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &program); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Program{}, domain.ErrDuplicateSlug
		}
		return domain.Program{}, err
	}

	s.log.Info("program created",
		zap.String("program_id", program.ID.String()),
		zap.String("slug", program.Slug),
		zap.String("commission_type", program.CommissionType))
	return program, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Program, error) {
	program, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Program{}, err
	}
	if program == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	return *program, nil
}

func (s *Service) GetBySlug(ctx context.Context, sl string) (domain.Program, error) {
	program, err := s.repo.FindBySlug(ctx, s.db, sl)
	if err != nil {
		return domain.Program{}, err
	}
	if program == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	return *program, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Program, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	programs := make([]domain.Program, 0, len(items))
	for _, item := range items {
		programs = append(programs, *item)
	}
	return programs, nil
}

func (s *Service) Activate(ctx context.Context, id snowflake.ID) (domain.Program, error) {
	return s.transition(ctx, id, domain.StatusActive)
}

func (s *Service) Pause(ctx context.Context, id snowflake.ID) (domain.Program, error) {
	return s.transition(ctx, id, domain.StatusPaused)
}

func (s *Service) Archive(ctx context.Context, id snowflake.ID) (domain.Program, error) {
	return s.transition(ctx, id, domain.StatusArchived)
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, to domain.Status) (domain.Program, error) {
	program, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Program{}, err
	}
	if program == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	if !program.CanTransitionTo(to) {
		return domain.Program{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, program.Status, to)
	}

	affected, err := s.repo.UpdateStatus(ctx, s.db, id, program.Status, to, program.Version)
	if err != nil {
		return domain.Program{}, err
	}
	if affected == 0 {
		return domain.Program{}, domain.ErrConcurrentModification
	}

	s.log.Info("program status changed",
		zap.String("program_id", id.String()),
		zap.String("from", string(program.Status)),
		zap.String("to", string(to)))
	return s.Get(ctx, id)
}

func (s *Service) UpdateCommissionConfig(ctx context.Context, req domain.UpdateConfigRequest) (domain.Program, error) {
	if err := rating.ValidateConfig(req.CommissionConfig); err != nil {
		return domain.Program{}, err
	}

	program, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return domain.Program{}, err
	}
	if program == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	if program.Status == domain.StatusArchived {
		return domain.Program{}, fmt.Errorf("%w: archived program", domain.ErrInvalidStateTransition)
	}

	configMap, err := encodeConfig(req.CommissionConfig)
	if err != nil {
		return domain.Program{}, err
	}

	program.CommissionType = req.CommissionConfig.Type
	program.CommissionConfig = configMap
	program.UpdatedAt = s.clock.Now()

	affected, err := s.repo.UpdateConfig(ctx, s.db, program)
	if err != nil {
		return domain.Program{}, err
	}
	if affected == 0 {
		return domain.Program{}, domain.ErrConcurrentModification
	}

	return s.Get(ctx, req.ID)
}

func (s *Service) RatingConfig(p domain.Program) (rating.Config, error) {
	return DecodeConfig(p.CommissionConfig)
}

// DecodeConfig turns the stored JSON scheme back into a rating config.
func DecodeConfig(m datatypes.JSONMap) (rating.Config, error) {
	raw, err := json.Marshal(map[string]any(m))
	if err != nil {
		return rating.Config{}, err
	}
	var cfg rating.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return rating.Config{}, err
	}
	return cfg, nil
}

func encodeConfig(cfg rating.Config) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return datatypes.JSONMap(m), nil
}
