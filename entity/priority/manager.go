package priority

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
)

const (
	obstacleRange  = 100.0 // 障碍物项生效距离（米）
	obstacleWeight = 100.0
	laneDropRange  = 200.0 // 车道减少项生效距离（米）
	laneDropWeight = 50.0
	leaderRange    = 20.0 // 前车项生效距离（米）
	leaderWeight   = 10.0

	laneChangeThreshold = 5.0 // 分数超过该值时需要变道
)

// 紧迫度分级阈值，从高到低
var levels = []struct {
	score float64
	level entity.UrgencyLevel
}{
	{50, entity.UrgencyCritical},
	{20, entity.UrgencyHigh},
	{10, entity.UrgencyMedium},
	{5, entity.UrgencyLow},
}

// Classify 将紧迫度分数映射到等级
// 说明：>=50 Critical，>=20 High，>=10 Medium，>=5 Low，否则None
func Classify(score float64) entity.UrgencyLevel {
	for _, l := range levels {
		if score >= l.score {
			return l.level
		}
	}
	return entity.UrgencyNone
}

// Manager CAV优先级管理器
// 功能：计算每辆CAV的变道紧迫度并给出协同变道的优先顺序
// 说明：每步从头重新计算，只保留最近一次的结果
type Manager struct {
	ctx entity.ITaskContext

	priorities map[int32]entity.CAVPriority
	order      []int32
	mtx        sync.RWMutex
}

// NewManager 创建CAV优先级管理器
func NewManager(ctx entity.ITaskContext) *Manager {
	return &Manager{
		ctx:        ctx,
		priorities: make(map[int32]entity.CAVPriority),
		order:      []int32{},
	}
}

// Score 计算CAV的紧迫度分数
// 参数：v-车辆，obstacles-障碍物列表
// 返回：分数与原因，非CAV返回0与"Not a CAV"
// 算法说明：以下各项独立触发并求和
// 1. 同车道前方100米内最近的障碍物：100/(d+1)
// 2. 同车道前方200米内最近的车道减少障碍物：50/(d+1)，可与1来自同一障碍物
// 3. 同车道前方20米内的车辆：10/(d+1)
func (m *Manager) Score(v entity.IVehicle, obstacles []entity.Obstacle) (float64, string) {
	if v.Kind() != entity.CAV {
		return 0, "Not a CAV"
	}
	score := 0.0
	reasons := make([]string, 0, 3)

	if _, d := entity.NearestObstacleAhead(v.Lane(), v.Position(), obstacles, nil); d < obstacleRange {
		score += obstacleWeight / (d + 1)
		reasons = append(reasons, fmt.Sprintf("Obstacle ahead at %.1fm", d))
	}
	if _, d := entity.NearestObstacleAhead(v.Lane(), v.Position(), obstacles, isLaneDrop); d < laneDropRange {
		score += laneDropWeight / (d + 1)
		reasons = append(reasons, fmt.Sprintf("Lane ending at %.1fm", d))
	}
	ahead, d, err := m.ctx.VehicleManager().VehicleAhead(v.ID(), true)
	if err != nil {
		log.Warnf("Score: %v", err)
	}
	if ahead != nil && d < leaderRange {
		score += leaderWeight / (d + 1)
		reasons = append(reasons, fmt.Sprintf("Vehicle ahead at %.1fm", d))
	}

	if len(reasons) == 0 {
		return score, "No urgency"
	}
	return score, strings.Join(reasons, "; ")
}

func isLaneDrop(o *entity.Obstacle) bool {
	return o.Category == entity.LaneDrop
}

// targetLane 选择建议的目标车道
// 功能：在合法的相邻车道中选择前方最近障碍物最远的一条
// 返回：目标车道，两侧距离相同时取左侧
func (m *Manager) targetLane(v entity.IVehicle, obstacles []entity.Obstacle) int32 {
	road := m.ctx.VehicleManager().Road()
	best, bestDistance := int32(0), -1.0
	for _, lane := range []int32{v.Lane() + entity.LEFT, v.Lane() + entity.RIGHT} {
		if !road.HasLane(lane) {
			continue
		}
		if _, d := entity.NearestObstacleAhead(lane, v.Position(), obstacles, nil); d > bestDistance {
			best, bestDistance = lane, d
		}
	}
	return best
}

// compute 计算单辆CAV的完整优先级
func (m *Manager) compute(v entity.IVehicle, obstacles []entity.Obstacle) entity.CAVPriority {
	score, reason := m.Score(v, obstacles)
	_, distance := entity.NearestObstacleAhead(v.Lane(), v.Position(), obstacles, nil)
	timeToObstacle := mathutil.INF
	if v.V() > 0 && distance < mathutil.INF {
		timeToObstacle = distance / v.V()
	}
	p := entity.CAVPriority{
		VehicleID:          v.ID(),
		Level:              Classify(score),
		Score:              score,
		Reason:             reason,
		DistanceToObstacle: distance,
		TimeToObstacle:     timeToObstacle,
		RequiresLaneChange: score > laneChangeThreshold,
	}
	if p.RequiresLaneChange {
		p.TargetLane = m.targetLane(v, obstacles)
	}
	return p
}

// RecomputeAll 重新计算全部CAV的优先级
// 参数：obstacles-障碍物列表
// 返回：优先顺序（分数降序，分数相同时ID升序）
func (m *Manager) RecomputeAll(obstacles []entity.Obstacle) []int32 {
	cavs := m.ctx.VehicleManager().VehiclesByType(entity.CAV)
	computed := lo.Map(cavs, func(v entity.IVehicle, _ int) entity.CAVPriority {
		return m.compute(v, obstacles)
	})
	// cavs为ID升序，稳定排序保证同分时ID升序
	slices.SortStableFunc(computed, func(a, b entity.CAVPriority) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.priorities = lo.SliceToMap(computed, func(p entity.CAVPriority) (int32, entity.CAVPriority) {
		return p.VehicleID, p
	})
	m.order = lo.Map(computed, func(p entity.CAVPriority, _ int) int32 { return p.VehicleID })
	return slices.Clone(m.order)
}

// Order 最近一次计算的优先顺序（副本）
func (m *Manager) Order() []int32 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return slices.Clone(m.order)
}

// Get 获取CAV最近一次计算的优先级
// 返回：未知车辆返回ErrUnknownVehicleID，非CAV返回ErrNotACAV
func (m *Manager) Get(id int32) (entity.CAVPriority, error) {
	m.mtx.RLock()
	p, ok := m.priorities[id]
	m.mtx.RUnlock()
	if ok {
		return p, nil
	}
	v, err := m.ctx.VehicleManager().GetOrError(id)
	if err != nil {
		return entity.CAVPriority{}, err
	}
	if v.Kind() != entity.CAV {
		return entity.CAVPriority{}, fmt.Errorf("%w: vehicle %d is %v", entity.ErrNotACAV, id, v.Kind())
	}
	return entity.CAVPriority{}, fmt.Errorf("%w: no priority computed for vehicle %d", entity.ErrUnknownVehicleID, id)
}

// Priorities 按优先顺序返回全部优先级
func (m *Manager) Priorities() []entity.CAVPriority {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return lo.Map(m.order, func(id int32, _ int) entity.CAVPriority { return m.priorities[id] })
}
