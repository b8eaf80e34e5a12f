//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
	"github.com/cliff-simpkins/scouting-flyers/pkg/database"
	pkgerrors "github.com/cliff-simpkins/scouting-flyers/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=scouting_flyers_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用与生产一致的嵌入式迁移建表
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

const metersPerDegree = 6371008.8 * math.Pi / 180

var center = orb.Point{-122.6765, 45.5231}

func east(p orb.Point, m float64) orb.Point {
	return orb.Point{p.Lon() + m/(metersPerDegree*math.Cos(p.Lat()*math.Pi/180)), p.Lat()}
}

// setupAssignment 创建 100m 正方形区域与一条 assigned 分配，返回清理函数
func setupAssignment(t *testing.T) (*model.Zone, *model.ZoneAssignment, func()) {
	t.Helper()
	ctx := context.Background()

	dLat := 50 / metersPerDegree
	dLon := 50 / (metersPerDegree * math.Cos(center.Lat()*math.Pi/180))
	zone := &model.Zone{
		ProjectID: uuid.NewString(),
		Name:      "集成测试区域",
		Boundary: model.Boundary{
			{center.Lon() - dLon, center.Lat() - dLat},
			{center.Lon() + dLon, center.Lat() - dLat},
			{center.Lon() + dLon, center.Lat() + dLat},
			{center.Lon() - dLon, center.Lat() + dLat},
			{center.Lon() - dLon, center.Lat() - dLat},
		},
	}
	if err := testDB.WithContext(ctx).Create(zone).Error; err != nil {
		t.Fatalf("创建区域失败: %v", err)
	}

	a := &model.ZoneAssignment{
		ZoneID:      zone.ZoneID,
		VolunteerID: uuid.NewString(),
		AssignedBy:  uuid.NewString(),
		Status:      model.AssignmentStatusAssigned,
	}
	if err := testDB.WithContext(ctx).Create(a).Error; err != nil {
		t.Fatalf("创建分配失败: %v", err)
	}

	cleanup := func() {
		testDB.Exec("DELETE FROM zones WHERE zone_id = ?", zone.ZoneID)
	}
	return zone, a, cleanup
}

// addMark 在事务内加锁、递增 mark_version 并写入标记
func addMark(t *testing.T, repo *repository.Repository, assignmentID string, p orb.Point) *model.CompletionMark {
	t.Helper()
	var mark *model.CompletionMark
	err := repo.Tx.Transaction(context.Background(), func(tx *repository.Repository) error {
		a, err := tx.Assignment.GetForUpdate(context.Background(), assignmentID)
		if err != nil {
			return err
		}
		if err := tx.Assignment.BumpMarkVersion(context.Background(), a); err != nil {
			return err
		}
		mark = &model.CompletionMark{
			AssignmentID: assignmentID,
			Seq:          a.MarkVersion,
			Longitude:    p.Lon(),
			Latitude:     p.Lat(),
			RadiusM:      10,
		}
		return tx.Mark.Create(context.Background(), mark)
	})
	if err != nil {
		t.Fatalf("写入标记失败: %v", err)
	}
	return mark
}

// ═══════════════════════════════════════════════════════════
// Zone / Boundary
// ═══════════════════════════════════════════════════════════

func TestZone_BoundaryRoundTrip(t *testing.T) {
	zone, _, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	got, err := repo.Zone.GetByID(context.Background(), zone.ZoneID)
	if err != nil {
		t.Fatalf("读取区域失败: %v", err)
	}
	if len(got.Boundary) != len(zone.Boundary) {
		t.Fatalf("边界点数不一致: %d vs %d", len(got.Boundary), len(zone.Boundary))
	}
	for i := range zone.Boundary {
		if got.Boundary[i] != zone.Boundary[i] {
			t.Errorf("第 %d 个顶点不一致: %v vs %v", i, got.Boundary[i], zone.Boundary[i])
		}
	}
}

// ═══════════════════════════════════════════════════════════
// Transaction / Locking
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	_, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		locked, err := tx.Assignment.GetForUpdate(ctx, a.AssignmentID)
		if err != nil {
			return err
		}
		if err := tx.Assignment.BumpMarkVersion(ctx, locked); err != nil {
			return err
		}
		if err := tx.Mark.Create(ctx, &model.CompletionMark{
			AssignmentID: a.AssignmentID, Seq: locked.MarkVersion,
			Longitude: center.Lon(), Latitude: center.Lat(), RadiusM: 10,
		}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort, got %v", err)
	}

	marks, _ := repo.Mark.ListByAssignment(ctx, a.AssignmentID)
	if len(marks) != 0 {
		t.Errorf("回滚后不应留下标记，实际 %d 条", len(marks))
	}
	got, _ := repo.Assignment.GetByID(ctx, a.AssignmentID)
	if got.MarkVersion != 0 {
		t.Errorf("回滚后 mark_version 应为 0，实际 %d", got.MarkVersion)
	}
}

func TestOptimisticLock_Assignment_ConflictDetected(t *testing.T) {
	_, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	first, _ := repo.Assignment.GetByID(ctx, a.AssignmentID)
	second, _ := repo.Assignment.GetByID(ctx, a.AssignmentID)

	first.Status = model.AssignmentStatusInProgress
	if err := repo.Assignment.Update(ctx, first); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("version 应递增为 2，实际 %d", first.Version)
	}

	second.Status = model.AssignmentStatusCompleted
	if err := repo.Assignment.Update(ctx, second); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("过期版本更新应返回乐观锁错误，实际 %v", err)
	}
}

func TestAssignment_CompletedAtConstraint(t *testing.T) {
	_, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	got, _ := repo.Assignment.GetByID(context.Background(), a.AssignmentID)
	got.Status = model.AssignmentStatusCompleted
	got.CompletedAt = nil

	if err := repo.Assignment.Update(context.Background(), got); err == nil {
		t.Error("completed 状态缺少 completed_at 应被 CHECK 约束拒绝")
	}
}

func TestAssignment_UniqueActivePerVolunteer(t *testing.T) {
	zone, a, cleanup := setupAssignment(t)
	defer cleanup()

	dup := &model.ZoneAssignment{
		ZoneID:      zone.ZoneID,
		VolunteerID: a.VolunteerID,
		AssignedBy:  a.AssignedBy,
		Status:      model.AssignmentStatusAssigned,
	}
	if err := testDB.Create(dup).Error; err == nil {
		t.Error("同一志愿者在同一区域不应有两条未完成分配")
	}

	repo := repository.NewRepository(testDB)
	active, err := repo.Assignment.FindActive(context.Background(), zone.ZoneID, a.VolunteerID)
	if err != nil || active.AssignmentID != a.AssignmentID {
		t.Errorf("FindActive 应返回现有分配: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Completion marks
// ═══════════════════════════════════════════════════════════

func TestMark_SeqFollowsMarkVersion(t *testing.T) {
	_, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	m1 := addMark(t, repo, a.AssignmentID, center)
	m2 := addMark(t, repo, a.AssignmentID, east(center, 5))

	if m1.Seq != 1 || m2.Seq != 2 {
		t.Errorf("seq 应为 1,2，实际 %d,%d", m1.Seq, m2.Seq)
	}

	marks, err := repo.Mark.ListByAssignment(context.Background(), a.AssignmentID)
	if err != nil || len(marks) != 2 {
		t.Fatalf("应有 2 条标记: %v", err)
	}
	if marks[0].MarkID != m1.MarkID {
		t.Error("标记应按创建顺序返回")
	}
}

func TestMark_FindNearest(t *testing.T) {
	_, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	near := addMark(t, repo, a.AssignmentID, east(center, 3))
	addMark(t, repo, a.AssignmentID, east(center, 15))

	got, err := repo.Mark.FindNearest(ctx, a.AssignmentID, center, 20)
	if err != nil {
		t.Fatalf("FindNearest 失败: %v", err)
	}
	if got.MarkID != near.MarkID {
		t.Errorf("应返回最近的标记 %s，实际 %s", near.MarkID, got.MarkID)
	}

	if _, err := repo.Mark.FindNearest(ctx, a.AssignmentID, east(center, 45), 20); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("范围内无标记时应返回 ErrRecordNotFound，实际 %v", err)
	}
}

func TestMark_CascadeOnAssignmentDelete(t *testing.T) {
	_, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	addMark(t, repo, a.AssignmentID, center)
	addMark(t, repo, a.AssignmentID, east(center, 8))

	if err := repo.Assignment.Delete(ctx, a.AssignmentID); err != nil {
		t.Fatalf("删除分配失败: %v", err)
	}

	var count int64
	testDB.Model(&model.CompletionMark{}).Where("assignment_id = ?", a.AssignmentID).Count(&count)
	if count != 0 {
		t.Errorf("删除分配后标记应级联删除，剩余 %d 条", count)
	}
	if err := repo.Assignment.Delete(ctx, a.AssignmentID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("重复删除应返回 ErrRecordNotFound，实际 %v", err)
	}
}

func TestAssignment_ListByVolunteer_ProjectFilter(t *testing.T) {
	zone, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	all, err := repo.Assignment.ListByVolunteer(ctx, a.VolunteerID, nil)
	if err != nil {
		t.Fatalf("ListByVolunteer 失败: %v", err)
	}
	if len(all) != 1 || all[0].Zone == nil || all[0].Zone.Name != zone.Name {
		t.Fatalf("应返回一条并预加载区域: %+v", all)
	}

	projectID := zone.ProjectID
	filtered, _ := repo.Assignment.ListByVolunteer(ctx, a.VolunteerID, &projectID)
	if len(filtered) != 1 {
		t.Errorf("按所属项目过滤应返回 1 条，实际 %d", len(filtered))
	}
	otherProject := uuid.NewString()
	filtered, _ = repo.Assignment.ListByVolunteer(ctx, a.VolunteerID, &otherProject)
	if len(filtered) != 0 {
		t.Errorf("其他项目应返回 0 条，实际 %d", len(filtered))
	}
}

func TestAssignment_NotesPersisted(t *testing.T) {
	_, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	notes := "东侧已完成"
	a.Notes = &notes
	if err := repo.Assignment.Update(ctx, a); err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	got, _ := repo.Assignment.GetByID(ctx, a.AssignmentID)
	if got.Notes == nil || *got.Notes != notes {
		t.Errorf("备注未持久化: %v", got.Notes)
	}
}

func TestNote_CRUDAndCascade(t *testing.T) {
	_, a, cleanup := setupAssignment(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	first := &model.AssignmentNote{AssignmentID: a.AssignmentID, AuthorID: a.VolunteerID, Content: "第一条"}
	if err := repo.Note.Create(ctx, first); err != nil {
		t.Fatalf("创建留言失败: %v", err)
	}
	second := &model.AssignmentNote{AssignmentID: a.AssignmentID, AuthorID: a.VolunteerID, Content: "第二条"}
	if err := repo.Note.Create(ctx, second); err != nil {
		t.Fatalf("创建留言失败: %v", err)
	}

	list, err := repo.Note.ListByAssignment(ctx, a.AssignmentID)
	if err != nil || len(list) != 2 {
		t.Fatalf("期望 2 条留言，实际 %d, %v", len(list), err)
	}

	first.Content = "修改后"
	if err := repo.Note.UpdateContent(ctx, first); err != nil {
		t.Fatalf("修改留言失败: %v", err)
	}
	got, _ := repo.Note.GetByID(ctx, first.NoteID)
	if got.Content != "修改后" {
		t.Errorf("内容未更新: %s", got.Content)
	}

	if err := repo.Note.Delete(ctx, second.NoteID); err != nil {
		t.Fatalf("删除留言失败: %v", err)
	}
	if err := repo.Note.Delete(ctx, second.NoteID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("重复删除应返回 ErrRecordNotFound，实际 %v", err)
	}

	// 分配删除后留言级联删除
	if err := repo.Assignment.Delete(ctx, a.AssignmentID); err != nil {
		t.Fatalf("删除分配失败: %v", err)
	}
	var count int64
	testDB.Model(&model.AssignmentNote{}).Where("assignment_id = ?", a.AssignmentID).Count(&count)
	if count != 0 {
		t.Errorf("留言应级联删除，剩余 %d 条", count)
	}
}
