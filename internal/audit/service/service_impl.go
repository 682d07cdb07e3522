package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/audit/domain"
	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/observability/obscontext"
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
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, entry domain.Entry) error {
	actor := obscontext.ActorIDFromContext(ctx)

	detail := datatypes.JSONMap{}
	if entry.Detail != nil {
		detail = datatypes.JSONMap(entry.Detail)
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (id, actor, action, entity_type, entity_id, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.genID.Generate(),
		actor,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		detail,
		s.clock.Now(),
	).Error
}

func (s *Service) List(ctx context.Context, entityType, entityID string) ([]domain.AuditLog, error) {
	var logs []domain.AuditLog
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, actor, action, entity_type, entity_id, detail, created_at
		 FROM audit_logs WHERE entity_type = ? AND entity_id = ? ORDER BY created_at DESC`,
		entityType,
		entityID,
	).Scan(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
