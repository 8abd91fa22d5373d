package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GTD-web/ems-backend-sub011/internal/model"
	pkgerrors "github.com/GTD-web/ems-backend-sub011/pkg/errors"
)

const (
	testAdminID       = "7b0c2f3e-1d2a-4c5b-9e8f-0a1b2c3d4e5f"
	testSystemActorID = "00000000-0000-0000-0000-000000000000"
)

// ── 固定时钟 ──

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Set(t time.Time) { c.now = t }

// ── Mock EvaluationPeriodRepository ──
// 与数据库行为一致：读取返回副本，Update 基于 version 做乐观锁检查

type mockEvaluationPeriodRepo struct {
	periods map[string]*model.EvaluationPeriod

	// 故障注入
	failList   error
	failGet    map[string]error
	failUpdate map[string]error
	panicGet   map[string]bool
}

func newMockEvaluationPeriodRepo() *mockEvaluationPeriodRepo {
	return &mockEvaluationPeriodRepo{
		periods:    make(map[string]*model.EvaluationPeriod),
		failGet:    make(map[string]error),
		failUpdate: make(map[string]error),
		panicGet:   make(map[string]bool),
	}
}

func (m *mockEvaluationPeriodRepo) Create(_ context.Context, period *model.EvaluationPeriod) error {
	if period.PeriodID == "" {
		period.PeriodID = uuid.New().String()
	}
	if period.Version == 0 {
		period.Version = 1
	}
	cp := *period
	m.periods[period.PeriodID] = &cp
	return nil
}

// seed 直接写入一条记录，绕过 Service 校验
func (m *mockEvaluationPeriodRepo) seed(period *model.EvaluationPeriod) *model.EvaluationPeriod {
	_ = m.Create(context.Background(), period)
	return period
}

// stored 返回当前存储的记录（测试断言用）
func (m *mockEvaluationPeriodRepo) stored(id string) *model.EvaluationPeriod {
	return m.periods[id]
}

func (m *mockEvaluationPeriodRepo) GetByID(_ context.Context, id string) (*model.EvaluationPeriod, error) {
	if m.panicGet[id] {
		panic("mock: corrupted record " + id)
	}
	if err := m.failGet[id]; err != nil {
		return nil, err
	}
	if p, ok := m.periods[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEvaluationPeriodRepo) Update(_ context.Context, period *model.EvaluationPeriod) error {
	if err := m.failUpdate[period.PeriodID]; err != nil {
		return err
	}
	current, ok := m.periods[period.PeriodID]
	if !ok || current.Version != period.Version {
		return pkgerrors.ErrOptimisticLock
	}
	period.Version++
	cp := *period
	m.periods[period.PeriodID] = &cp
	return nil
}

func (m *mockEvaluationPeriodRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.periods, id)
	return nil
}

func (m *mockEvaluationPeriodRepo) ListByStatuses(_ context.Context, statuses ...model.PeriodStatus) ([]model.EvaluationPeriod, error) {
	if m.failList != nil {
		return nil, m.failList
	}
	want := make(map[model.PeriodStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var result []model.EvaluationPeriod
	for _, p := range m.periods {
		if want[p.Status] {
			result = append(result, *p)
		}
	}
	sortByStart(result)
	return result, nil
}

func (m *mockEvaluationPeriodRepo) List(_ context.Context, offset, limit int) ([]model.EvaluationPeriod, int64, error) {
	var all []model.EvaluationPeriod
	for _, p := range m.periods {
		all = append(all, *p)
	}
	sortByStart(all)
	total := int64(len(all))
	if offset >= len(all) {
		return []model.EvaluationPeriod{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockEvaluationPeriodRepo) ExistsByName(_ context.Context, name string, excludeID string) (bool, error) {
	for id, p := range m.periods {
		if id != excludeID && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEvaluationPeriodRepo) ListOverlapping(_ context.Context, start, end time.Time, excludeID string) ([]model.EvaluationPeriod, error) {
	var result []model.EvaluationPeriod
	for id, p := range m.periods {
		if id == excludeID || p.PeerEvaluationDeadline == nil {
			continue
		}
		if !p.StartDate.After(end) && !p.PeerEvaluationDeadline.Before(start) {
			result = append(result, *p)
		}
	}
	sortByStart(result)
	return result, nil
}

func sortByStart(periods []model.EvaluationPeriod) {
	sort.Slice(periods, func(i, j int) bool {
		if periods[i].StartDate.Equal(periods[j].StartDate) {
			return periods[i].Name < periods[j].Name
		}
		return periods[i].StartDate.Before(periods[j].StartDate)
	})
}

// ── Mock PeriodParticipantRepository ──

type mockPeriodParticipantRepo struct {
	participants map[string][]model.PeriodParticipant // periodID → 参与者
}

func newMockPeriodParticipantRepo() *mockPeriodParticipantRepo {
	return &mockPeriodParticipantRepo{participants: make(map[string][]model.PeriodParticipant)}
}

func (m *mockPeriodParticipantRepo) add(periodID, employeeID string, excluded bool) {
	m.participants[periodID] = append(m.participants[periodID], model.PeriodParticipant{
		ParticipantID: uuid.New().String(),
		PeriodID:      periodID,
		EmployeeID:    employeeID,
		IsExcluded:    excluded,
	})
}

func (m *mockPeriodParticipantRepo) ListByPeriod(_ context.Context, periodID string, includeExcluded bool) ([]model.PeriodParticipant, error) {
	var result []model.PeriodParticipant
	for _, p := range m.participants[periodID] {
		if p.IsExcluded && !includeExcluded {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *mockPeriodParticipantRepo) UnregisterAll(_ context.Context, periodID string, _ string) (int64, error) {
	n := int64(len(m.participants[periodID]))
	delete(m.participants, periodID)
	return n, nil
}

// ── Mock PeriodActivityLogRepository ──

type mockPeriodActivityLogRepo struct {
	logs       []model.PeriodActivityLog
	failCreate error
}

func newMockPeriodActivityLogRepo() *mockPeriodActivityLogRepo {
	return &mockPeriodActivityLogRepo{}
}

func (m *mockPeriodActivityLogRepo) Create(_ context.Context, log *model.PeriodActivityLog) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	log.ActivityLogID = uuid.New().String()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockPeriodActivityLogRepo) ListByPeriod(_ context.Context, periodID string, limit int) ([]model.PeriodActivityLog, error) {
	var result []model.PeriodActivityLog
	for i := len(m.logs) - 1; i >= 0 && len(result) < limit; i-- {
		if m.logs[i].PeriodID == periodID {
			result = append(result, m.logs[i])
		}
	}
	return result, nil
}

// actions 返回某个周期按写入顺序的动作列表
func (m *mockPeriodActivityLogRepo) actions(periodID string) []string {
	var result []string
	for _, l := range m.logs {
		if l.PeriodID == periodID {
			result = append(result, l.Action)
		}
	}
	return result
}
