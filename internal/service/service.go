package service

import (
	"go.uber.org/zap"

	"github.com/cliff-simpkins/scouting-flyers/config"
	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
	"github.com/cliff-simpkins/scouting-flyers/pkg/geo"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Zone       ZoneService
	Assignment AssignmentService
	Completion CompletionService
	Export     ExportService
	Note       NoteService
}

// NewService 创建 Service 聚合
// cache 为 nil 时完成度每次读取都重新计算
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ProgressCache,
	logger *zap.Logger,
) *Service {
	authz := NewRoleAuthorizer(cfg.Completion.OrganizerRoles)
	sampler := geo.Sampler{RowHeightM: cfg.Completion.SampleRowHeightM}
	progress := NewProgressCalculator(repo, cache, sampler, logger)
	assignments := NewAssignmentService(repo, authz, progress, logger)

	return &Service{
		Zone:       NewZoneService(repo, authz, logger),
		Assignment: assignments,
		Completion: NewCompletionService(&cfg.Completion, repo, authz, assignments, progress, logger),
		Export:     NewExportService(repo, progress, logger),
		Note:       NewNoteService(repo, authz, logger),
	}
}
