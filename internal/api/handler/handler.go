package handler

import "github.com/cliff-simpkins/scouting-flyers/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Zone       *ZoneHandler
	Assignment *AssignmentHandler
	Completion *CompletionHandler
	Export     *ExportHandler
	Note       *NoteHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Zone:       NewZoneHandler(svc.Zone),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Completion: NewCompletionHandler(svc.Completion),
		Export:     NewExportHandler(svc.Export),
		Note:       NewNoteHandler(svc.Note),
	}
}
