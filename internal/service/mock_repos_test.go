package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cliff-simpkins/scouting-flyers/config"
	"github.com/cliff-simpkins/scouting-flyers/internal/model"
	"github.com/cliff-simpkins/scouting-flyers/internal/repository"
	pkgerrors "github.com/cliff-simpkins/scouting-flyers/pkg/errors"
	"github.com/cliff-simpkins/scouting-flyers/pkg/geo"
)

// ── Mock ZoneRepository ──

type mockZoneRepo struct {
	mu    sync.Mutex
	zones map[string]*model.Zone
}

func newMockZoneRepo() *mockZoneRepo {
	return &mockZoneRepo{zones: make(map[string]*model.Zone)}
}

func (m *mockZoneRepo) Create(_ context.Context, zone *model.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if zone.ZoneID == "" {
		zone.ZoneID = fmt.Sprintf("zone-%d", len(m.zones)+1)
	}
	zone.CreatedAt = time.Now()
	m.zones[zone.ZoneID] = zone
	return nil
}

func (m *mockZoneRepo) GetByID(_ context.Context, id string) (*model.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if z, ok := m.zones[id]; ok {
		return z, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock AssignmentRepository ──
// 存值、返回副本，修改只在 Update 后生效

type mockAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[string]model.ZoneAssignment
	seq         int
	// zones 用于按项目过滤
	zones *mockZoneRepo
}

func newMockAssignmentRepo(zones *mockZoneRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{assignments: make(map[string]model.ZoneAssignment), zones: zones}
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.ZoneAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if a.AssignmentID == "" {
		a.AssignmentID = fmt.Sprintf("asg-%d", m.seq)
	}
	if a.Version == 0 {
		a.Version = 1
	}
	a.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	a.UpdatedAt = a.CreatedAt
	m.assignments[a.AssignmentID] = *a
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.ZoneAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) GetForUpdate(ctx context.Context, id string) (*model.ZoneAssignment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAssignmentRepo) ListByZone(_ context.Context, zoneID string) ([]model.ZoneAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ZoneAssignment
	for _, a := range m.assignments {
		if a.ZoneID == zoneID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockAssignmentRepo) ListByVolunteer(ctx context.Context, volunteerID string, projectID *string) ([]model.ZoneAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ZoneAssignment
	for _, a := range m.assignments {
		if a.VolunteerID != volunteerID {
			continue
		}
		if projectID != nil {
			z, err := m.zones.GetByID(ctx, a.ZoneID)
			if err != nil || z.ProjectID != *projectID {
				continue
			}
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *mockAssignmentRepo) FindActive(_ context.Context, zoneID, volunteerID string) (*model.ZoneAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.ZoneID == zoneID && a.VolunteerID == volunteerID && a.Status != model.AssignmentStatusCompleted {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *model.ZoneAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.assignments[a.AssignmentID]
	if !ok || stored.Version != a.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = a.Status
	stored.StartedAt = a.StartedAt
	stored.CompletedAt = a.CompletedAt
	stored.ManualCompletionPercentage = a.ManualCompletionPercentage
	stored.Notes = a.Notes
	stored.UpdatedBy = a.UpdatedBy
	stored.Version++
	m.assignments[a.AssignmentID] = stored
	a.Version = stored.Version
	return nil
}

func (m *mockAssignmentRepo) BumpMarkVersion(_ context.Context, a *model.ZoneAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.assignments[a.AssignmentID]
	if !ok || stored.MarkVersion != a.MarkVersion {
		return pkgerrors.ErrOptimisticLock
	}
	stored.MarkVersion++
	m.assignments[a.AssignmentID] = stored
	a.MarkVersion = stored.MarkVersion
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

// ── Mock AssignmentNoteRepository ──

type mockNoteRepo struct {
	mu    sync.Mutex
	notes map[string]model.AssignmentNote
	seq   int
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]model.AssignmentNote)}
}

func (m *mockNoteRepo) Create(_ context.Context, note *model.AssignmentNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if note.NoteID == "" {
		note.NoteID = fmt.Sprintf("note-%d", m.seq)
	}
	note.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	note.UpdatedAt = note.CreatedAt
	m.notes[note.NoteID] = *note
	return nil
}

func (m *mockNoteRepo) GetByID(_ context.Context, id string) (*model.AssignmentNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notes[id]; ok {
		return &n, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNoteRepo) ListByAssignment(_ context.Context, assignmentID string) ([]model.AssignmentNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AssignmentNote
	for _, n := range m.notes {
		if n.AssignmentID == assignmentID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockNoteRepo) UpdateContent(_ context.Context, note *model.AssignmentNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.notes[note.NoteID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Content = note.Content
	stored.UpdatedAt = stored.UpdatedAt.Add(time.Second)
	m.notes[note.NoteID] = stored
	return nil
}

func (m *mockNoteRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.notes, id)
	return nil
}

// ── Mock CompletionMarkRepository ──

type mockMarkRepo struct {
	mu    sync.Mutex
	marks map[string]*model.CompletionMark
	seq   int
	// listCalls 统计 ListByAssignment 调用次数，用于验证缓存
	listCalls int
}

func newMockMarkRepo() *mockMarkRepo {
	return &mockMarkRepo{marks: make(map[string]*model.CompletionMark)}
}

func (m *mockMarkRepo) Create(_ context.Context, mark *model.CompletionMark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if mark.MarkID == "" {
		mark.MarkID = fmt.Sprintf("mark-%d", m.seq)
	}
	mark.CreatedAt = time.Now()
	cp := *mark
	m.marks[mark.MarkID] = &cp
	return nil
}

func (m *mockMarkRepo) GetByID(_ context.Context, id string) (*model.CompletionMark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mk, ok := m.marks[id]; ok {
		cp := *mk
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMarkRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.CompletionMark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.listLocked(assignmentID), nil
}

func (m *mockMarkRepo) listLocked(assignmentID string) []model.CompletionMark {
	var result []model.CompletionMark
	for _, mk := range m.marks {
		if mk.AssignmentID == assignmentID {
			result = append(result, *mk)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result
}

func (m *mockMarkRepo) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.marks[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.marks, id)
	return nil
}

func (m *mockMarkRepo) FindNearest(_ context.Context, assignmentID string, p orb.Point, maxDistM float64) (*model.CompletionMark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	marks := m.listLocked(assignmentID)
	points := make([]orb.Point, len(marks))
	for i := range marks {
		points[i] = marks[i].Point()
	}
	idx, _ := geo.NearestIndex(points, p, maxDistM)
	if idx < 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &marks[idx], nil
}

func (m *mockMarkRepo) count(assignmentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listLocked(assignmentID))
}

// ── Mock TxRunner ──
// 用一把全局锁模拟行锁对写操作的串行化

type mockTxRunner struct {
	mu   sync.Mutex
	repo *repository.Repository
}

func (t *mockTxRunner) Transaction(_ context.Context, fn func(tx *repository.Repository) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(t.repo)
}

// ── 测试夹具 ──

const (
	testVolunteer = "vol-1"
	testOrganizer = "org-1"
)

var (
	volunteerActor = Actor{UserID: testVolunteer, Role: "volunteer"}
	organizerActor = Actor{UserID: testOrganizer, Role: "organizer"}
	strangerActor  = Actor{UserID: "someone-else", Role: "volunteer"}

	testCenter = orb.Point{-122.6765, 45.5231}
)

type testEnv struct {
	repo        *repository.Repository
	zones       *mockZoneRepo
	assignments *mockAssignmentRepo
	marks       *mockMarkRepo
	notes       *mockNoteRepo
	svc         *Service
	cfg         *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Completion: config.CompletionConfig{
			MarkRadiusM:        10,
			UnmarkRadiusFactor: 2,
			SampleRowHeightM:   0.25,
			OrganizerRoles:     []string{"owner", "organizer"},
		},
	}
}

func newTestEnv(cache ProgressCache) *testEnv {
	zones := newMockZoneRepo()
	assignments := newMockAssignmentRepo(zones)
	marks := newMockMarkRepo()
	notes := newMockNoteRepo()
	repo := &repository.Repository{
		Zone:       zones,
		Assignment: assignments,
		Mark:       marks,
		Note:       notes,
	}
	repo.Tx = &mockTxRunner{repo: repo}

	cfg := testConfig()
	return &testEnv{
		repo:        repo,
		zones:       zones,
		assignments: assignments,
		marks:       marks,
		notes:       notes,
		svc:         NewService(cfg, repo, cache, zap.NewNop()),
		cfg:         cfg,
	}
}

const metersPerDegree = orb.EarthRadius * math.Pi / 180

// squareBoundary 以 center 为中心、边长 sideM 米的正方形边界
func squareBoundary(center orb.Point, sideM float64) model.Boundary {
	dLat := sideM / 2 / metersPerDegree
	dLon := sideM / 2 / (metersPerDegree * math.Cos(center.Lat()*math.Pi/180))
	lon0, lat0 := center.Lon(), center.Lat()
	return model.Boundary{
		{lon0 - dLon, lat0 - dLat},
		{lon0 + dLon, lat0 - dLat},
		{lon0 + dLon, lat0 + dLat},
		{lon0 - dLon, lat0 + dLat},
		{lon0 - dLon, lat0 - dLat},
	}
}

// offsetPoint 将点向东/北平移若干米
func offsetPoint(p orb.Point, eastM, northM float64) orb.Point {
	return orb.Point{
		p.Lon() + eastM/(metersPerDegree*math.Cos(p.Lat()*math.Pi/180)),
		p.Lat() + northM/metersPerDegree,
	}
}

// seedAssignment 创建 100m × 100m 的区域并分配给 testVolunteer
func (e *testEnv) seedAssignment(status string) *model.ZoneAssignment {
	ctx := context.Background()
	zone := &model.Zone{ProjectID: "proj-1", Name: "测试区域", Boundary: squareBoundary(testCenter, 100)}
	_ = e.zones.Create(ctx, zone)

	a := &model.ZoneAssignment{
		ZoneID:      zone.ZoneID,
		VolunteerID: testVolunteer,
		AssignedBy:  testOrganizer,
		Status:      status,
	}
	now := time.Now()
	if status != model.AssignmentStatusAssigned {
		a.StartedAt = &now
	}
	if status == model.AssignmentStatusCompleted {
		a.CompletedAt = &now
	}
	_ = e.assignments.Create(ctx, a)
	return a
}
