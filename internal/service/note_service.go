package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/internal/dto"
	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
)

// NoteService 分配留言业务接口
// 查看：分配的志愿者或组织者；新建：仅志愿者本人；修改/删除：仅作者
type NoteService interface {
	List(ctx context.Context, assignmentID string, actor Actor) ([]dto.NoteResponse, error)
	Create(ctx context.Context, assignmentID string, actor Actor, req *dto.NoteContentRequest) (*dto.NoteResponse, error)
	Update(ctx context.Context, noteID string, actor Actor, req *dto.NoteContentRequest) (*dto.NoteResponse, error)
	Delete(ctx context.Context, noteID string, actor Actor) error
}

type noteService struct {
	repo   *repository.Repository
	authz  Authorizer
	logger *zap.Logger
}

// NewNoteService 创建 NoteService 实例
func NewNoteService(repo *repository.Repository, authz Authorizer, logger *zap.Logger) NoteService {
	return &noteService{repo: repo, authz: authz, logger: logger}
}

func (s *noteService) List(ctx context.Context, assignmentID string, actor Actor) ([]dto.NoteResponse, error) {
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanActOn(ctx, actor, a) {
		return nil, ErrAssignmentForbidden
	}

	list, err := s.repo.Note.ListByAssignment(ctx, assignmentID)
	if err != nil {
		s.logger.Error("列出留言失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.NoteResponse, 0, len(list))
	for i := range list {
		result = append(result, *toNoteResponse(&list[i]))
	}
	return result, nil
}

func (s *noteService) Create(ctx context.Context, assignmentID string, actor Actor, req *dto.NoteContentRequest) (*dto.NoteResponse, error) {
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if actor.UserID == "" || actor.UserID != a.VolunteerID {
		return nil, ErrVolunteerOnly
	}

	note := &model.AssignmentNote{
		AssignmentID: assignmentID,
		AuthorID:     actor.UserID,
		Content:      req.Content,
	}
	if err := s.repo.Note.Create(ctx, note); err != nil {
		s.logger.Error("创建留言失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("新增分配留言", zap.String("assignment_id", assignmentID), zap.String("note_id", note.NoteID))
	return toNoteResponse(note), nil
}

func (s *noteService) Update(ctx context.Context, noteID string, actor Actor, req *dto.NoteContentRequest) (*dto.NoteResponse, error) {
	note, err := s.getOwnNote(ctx, noteID, actor)
	if err != nil {
		return nil, err
	}

	note.Content = req.Content
	if err := s.repo.Note.UpdateContent(ctx, note); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		s.logger.Error("修改留言失败", zap.String("note_id", noteID), zap.Error(err))
		return nil, err
	}

	// 重新读取以拿到数据库生成的 updated_at
	updated, err := s.repo.Note.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return toNoteResponse(updated), nil
}

func (s *noteService) Delete(ctx context.Context, noteID string, actor Actor) error {
	if _, err := s.getOwnNote(ctx, noteID, actor); err != nil {
		return err
	}
	if err := s.repo.Note.Delete(ctx, noteID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		s.logger.Error("删除留言失败", zap.String("note_id", noteID), zap.Error(err))
		return err
	}
	s.logger.Info("分配留言已删除", zap.String("note_id", noteID), zap.String("operator", actor.UserID))
	return nil
}

// ────────────────────── 内部辅助方法 ──────────────────────

func (s *noteService) getAssignment(ctx context.Context, id string) (*model.ZoneAssignment, error) {
	a, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询分配失败", zap.String("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

// getOwnNote 留言不存在返回 ErrNoteNotFound，非作者返回 ErrNoteAuthorOnly
func (s *noteService) getOwnNote(ctx context.Context, id string, actor Actor) (*model.AssignmentNote, error) {
	note, err := s.repo.Note.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		s.logger.Error("查询留言失败", zap.String("note_id", id), zap.Error(err))
		return nil, err
	}
	if actor.UserID == "" || note.AuthorID != actor.UserID {
		return nil, ErrNoteAuthorOnly
	}
	return note, nil
}

func toNoteResponse(n *model.AssignmentNote) *dto.NoteResponse {
	return &dto.NoteResponse{
		ID:           n.NoteID,
		AssignmentID: n.AssignmentID,
		AuthorID:     n.AuthorID,
		Content:      n.Content,
		CreatedAt:    n.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    n.UpdatedAt.Format(time.RFC3339),
	}
}
