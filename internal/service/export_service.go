package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
	"github.com/cliff-simpkins/scouting-flyers/pkg/geo"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 区域完成度汇总导出为 Excel (.xlsx)，每个分配一行
//   - 各分配的标记集合互相独立，这里只并列展示，不做跨分配合并
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportZoneProgress 导出区域内所有分配的完成度
	ExportZoneProgress(ctx context.Context, zoneID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	progress ProgressCalculator
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, progress ProgressCalculator, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, progress: progress, logger: logger}
}

var exportHeaders = []string{
	"分配 ID", "志愿者 ID", "状态", "开始时间", "完成时间",
	"标记数", "已覆盖面积(㎡)", "计算完成度(%)", "人工完成度(%)", "展示完成度(%)",
}

// ═══════════════════════════════════════════════════════════
// ExportZoneProgress 导出区域完成度汇总
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：区域名称与总面积
//   - 第 2 行：表头
//   - 第 3 行起：每个分配一行，人工完成度为空时显示 "-"
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportZoneProgress(ctx context.Context, zoneID string) (*bytes.Buffer, string, error) {
	// 1. 查询区域
	zone, err := s.repo.Zone.GetByID(ctx, zoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrZoneNotFound
		}
		s.logger.Error("查询区域失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 查询分配
	assignments, err := s.repo.Assignment.ListByZone(ctx, zoneID)
	if err != nil {
		s.logger.Error("查询区域分配失败", zap.Error(err))
		return nil, "", err
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "完成度"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "B", 38)
	f.SetColWidth(sheetName, "C", "E", 22)
	f.SetColWidth(sheetName, "F", colName(len(exportHeaders)-1), 16)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	totalArea := round2(geo.PolygonArea(zone.Boundary.Ring()))

	// 数据行
	row := 3
	for i := range assignments {
		a := &assignments[i]
		p, err := s.progress.Compute(ctx, zone, a)
		if err != nil {
			return nil, "", err
		}
		effective, _ := EffectivePercentage(a, p.ProgressPercentage)

		values := []interface{}{
			a.AssignmentID,
			a.VolunteerID,
			a.Status,
			derefOrDash(formatTimePtr(a.StartedAt)),
			derefOrDash(formatTimePtr(a.CompletedAt)),
			p.MarkCount,
			p.CompletedAreaSqm,
			p.ProgressPercentage,
			intOrDash(a.ManualCompletionPercentage),
			effective,
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
		row++
	}

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 完成度汇总（总面积 %.2f ㎡）", zone.Name, totalArea))
	f.MergeCell(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for col, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(col), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(exportHeaders)-1), 2), headerStyle)

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("完成度_%s.xlsx", zone.Name)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func derefOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func intOrDash(v *int) interface{} {
	if v == nil {
		return "-"
	}
	return *v
}
