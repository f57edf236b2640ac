package vehicle

import (
	"fmt"
	"math"
	"slices"

	"git.fiblab.net/general/common/v2/mathutil"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils"
)

// VehicleManager 车辆管理器
// 功能：唯一持有可变车辆状态，负责注册、邻车查询、运动学积分与状态历史
// 说明：读阶段所有查询基于snapshot与排好序的链表；写阶段的修改只进入runtime，
// 在StepKinematics中统一提交
type VehicleManager struct {
	ctx entity.ITaskContext

	road entity.RoadConfig

	data     map[int32]*Vehicle
	vehicles []*Vehicle // ID升序

	lanes []*laneList // 各车道链表，下标为车道编号-1
	all   *laneList   // 整条道路链表

	history *History
}

// NewManager 创建车辆管理器
// 参数：ctx-任务上下文
// 返回：空的车辆管理器，需调用Init设置道路
func NewManager(ctx entity.ITaskContext) *VehicleManager {
	m := &VehicleManager{ctx: ctx}
	m.reset(entity.RoadConfig{})
	return m
}

func (m *VehicleManager) reset(road entity.RoadConfig) {
	m.road = road
	m.data = make(map[int32]*Vehicle)
	m.vehicles = make([]*Vehicle, 0)
	m.lanes = make([]*laneList, 0, road.Lanes)
	for i := int32(1); i <= road.Lanes; i++ {
		m.lanes = append(m.lanes, newLaneList(fmt.Sprintf("lane %d", i)))
	}
	m.all = newLaneList("road")
	m.history = newHistory()
}

// Init 初始化道路与全部车辆
// 功能：清空已有数据，按顺序注册所有车辆并记录初始快照
// 参数：road-道路配置，specs-车辆注册参数
// 返回：任一车辆注册失败时返回该错误，此时管理器中不保留任何车辆
func (m *VehicleManager) Init(road entity.RoadConfig, specs []entity.VehicleSpec) error {
	if road.Lanes < 1 {
		return fmt.Errorf("%w: road must have at least one lane, got %d", entity.ErrLaneOutOfRange, road.Lanes)
	}
	m.reset(road)
	for _, spec := range specs {
		if err := m.Add(spec); err != nil {
			m.reset(road)
			return err
		}
	}
	log.Infof("VehicleManager: %d lanes, %d CAVs, %d HDVs",
		road.Lanes, len(m.VehiclesByType(entity.CAV)), len(m.VehiclesByType(entity.HDV)))
	return nil
}

// Road 道路配置
func (m *VehicleManager) Road() entity.RoadConfig {
	return m.road
}

// validate 校验注册参数并填充默认值
func (m *VehicleManager) validate(spec entity.VehicleSpec) (entity.VehicleSpec, error) {
	if _, ok := m.data[spec.ID]; ok {
		return spec, fmt.Errorf("%w: %d", entity.ErrDuplicateID, spec.ID)
	}
	if !m.road.HasLane(spec.Lane) {
		return spec, fmt.Errorf("%w: vehicle %d lane %d not in [1, %d]",
			entity.ErrLaneOutOfRange, spec.ID, spec.Lane, m.road.Lanes)
	}
	switch spec.Kind {
	case entity.CAV, entity.HDV:
	default:
		return spec, fmt.Errorf("%w: vehicle %d has kind %v", entity.ErrInvalidVehicle, spec.ID, spec.Kind)
	}
	switch {
	case math.IsNaN(spec.Position) || math.IsInf(spec.Position, 0):
		return spec, fmt.Errorf("%w: vehicle %d position %v", entity.ErrInvalidVehicle, spec.ID, spec.Position)
	case math.IsNaN(spec.A) || math.IsInf(spec.A, 0):
		return spec, fmt.Errorf("%w: vehicle %d acceleration %v", entity.ErrInvalidVehicle, spec.ID, spec.A)
	case !(spec.V >= 0) || math.IsInf(spec.V, 0):
		return spec, fmt.Errorf("%w: vehicle %d velocity %v", entity.ErrInvalidVehicle, spec.ID, spec.V)
	case spec.Length < 0 || spec.Width < 0:
		return spec, fmt.Errorf("%w: vehicle %d size %vx%v", entity.ErrInvalidVehicle, spec.ID, spec.Length, spec.Width)
	case spec.IntendedAction < entity.KeepLane || spec.IntendedAction > entity.ChangeRight:
		return spec, fmt.Errorf("%w: vehicle %d action %v", entity.ErrInvalidVehicle, spec.ID, spec.IntendedAction)
	case !spec.Probabilities.Valid():
		return spec, fmt.Errorf("%w: vehicle %d probabilities %v", entity.ErrInvalidVehicle, spec.ID, spec.Probabilities)
	}
	if spec.Length == 0 {
		spec.Length = entity.DefaultVehicleLength
	}
	if spec.Width == 0 {
		spec.Width = entity.DefaultVehicleWidth
	}
	if spec.Probabilities.Sum() > 0 {
		spec.Probabilities = spec.Probabilities.Normalized()
	} else {
		spec.Probabilities = entity.DefaultHDVDistribution
	}
	return spec, nil
}

// Add 注册新车辆
// 功能：校验参数、建立链表索引并在当前时刻记录初始快照
// 参数：spec-车辆注册参数
// 返回：ID重复、车道越界或参数非法时返回错误，管理器状态不变
func (m *VehicleManager) Add(spec entity.VehicleSpec) error {
	spec, err := m.validate(spec)
	if err != nil {
		return err
	}
	v := newVehicle(spec)
	m.data[v.id] = v
	i, _ := slices.BinarySearchFunc(m.vehicles, v.id, func(e *Vehicle, id int32) int {
		return int(e.id) - int(id)
	})
	m.vehicles = slices.Insert(m.vehicles, i, v)
	m.lanes[v.snapshot.Lane-1].list.Merge([]*entity.VehicleNode{v.node})
	m.all.list.Merge([]*entity.VehicleNode{v.roadNode})
	m.history.append(v.state(m.ctx.Clock().T))
	log.Debugf("VehicleManager: add %v", v)
	return nil
}

// Get 根据ID获取车辆，如果不存在则panic
func (m *VehicleManager) Get(id int32) entity.IVehicle {
	if v, ok := m.data[id]; !ok {
		log.Panicf("no id %d in vehicle data", id)
		return nil
	} else {
		return v
	}
}

// GetOrError 根据ID获取车辆，如果不存在则返回ErrUnknownVehicleID
func (m *VehicleManager) GetOrError(id int32) (entity.IVehicle, error) {
	return m.getOrError(id)
}

func (m *VehicleManager) getOrError(id int32) (*Vehicle, error) {
	if v, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("%w: %d", entity.ErrUnknownVehicleID, id)
	} else {
		return v, nil
	}
}

// Find 按ID批量查找车辆
// 参数：ids-车辆ID列表，为空时返回全部车辆
// 返回：找到的车辆（按ids顺序）与不存在的ID
func (m *VehicleManager) Find(ids []int32) ([]entity.IVehicle, []int32) {
	found, failed := utils.Find(m.data, m.vehicles, ids)
	return toInterfaces(found), failed
}

// Vehicles 全部车辆，ID升序
func (m *VehicleManager) Vehicles() []entity.IVehicle {
	return toInterfaces(m.vehicles)
}

// VehiclesInLane 某车道上的车辆，ID升序
func (m *VehicleManager) VehiclesInLane(lane int32) []entity.IVehicle {
	return lo.FilterMap(m.vehicles, func(v *Vehicle, _ int) (entity.IVehicle, bool) {
		return v, v.snapshot.Lane == lane
	})
}

// VehiclesByType 某类型的车辆，ID升序
func (m *VehicleManager) VehiclesByType(kind entity.VehicleKind) []entity.IVehicle {
	return lo.FilterMap(m.vehicles, func(v *Vehicle, _ int) (entity.IVehicle, bool) {
		return v, v.kind == kind
	})
}

// VehicleAhead 查找严格位于前方的最近车辆
// 参数：id-车辆ID，sameLaneOnly-是否只在同一车道中查找
// 返回：最近车辆与纵向距离，不存在时返回nil与INF；未知ID返回ErrUnknownVehicleID
// 说明：距离相同的候选取ID最小者
func (m *VehicleManager) VehicleAhead(id int32, sameLaneOnly bool) (entity.IVehicle, float64, error) {
	v, err := m.getOrError(id)
	if err != nil {
		return nil, mathutil.INF, err
	}
	node := v.roadNode
	if sameLaneOnly {
		node = v.node
	}
	if ahead := nearestAhead(node); ahead != nil {
		return ahead.Value, ahead.S - node.S, nil
	}
	return nil, mathutil.INF, nil
}

// VehicleBehind 查找严格位于后方的最近车辆
// 参数：id-车辆ID，sameLaneOnly-是否只在同一车道中查找
// 返回：最近车辆与纵向距离，不存在时返回nil与INF；未知ID返回ErrUnknownVehicleID
// 说明：距离相同的候选取ID最小者
func (m *VehicleManager) VehicleBehind(id int32, sameLaneOnly bool) (entity.IVehicle, float64, error) {
	v, err := m.getOrError(id)
	if err != nil {
		return nil, mathutil.INF, err
	}
	node := v.roadNode
	if sameLaneOnly {
		node = v.node
	}
	if behind := nearestBehind(node); behind != nil {
		return behind.Value, node.S - behind.S, nil
	}
	return nil, mathutil.INF, nil
}

// SetIntendedAction 设置车辆意图行为（写阶段，StepKinematics后生效）
func (m *VehicleManager) SetIntendedAction(id int32, action entity.LaneAction) error {
	v, err := m.getOrError(id)
	if err != nil {
		return err
	}
	if action < entity.KeepLane || action > entity.ChangeRight {
		return fmt.Errorf("%w: vehicle %d action %v", entity.ErrInvalidVehicle, id, action)
	}
	v.runtime.Action = action
	return nil
}

// ChangeLane 将车辆变道到相邻车道（写阶段，StepKinematics后生效）
// 参数：id-车辆ID，target-目标车道，须合法且与当前车道相邻
// 说明：同时将意图行为设置为对应的变道方向
func (m *VehicleManager) ChangeLane(id int32, target int32) error {
	v, err := m.getOrError(id)
	if err != nil {
		return err
	}
	if !m.road.HasLane(target) {
		return fmt.Errorf("%w: target lane %d not in [1, %d]", entity.ErrLaneOutOfRange, target, m.road.Lanes)
	}
	for _, action := range []entity.LaneAction{entity.ChangeLeft, entity.ChangeRight} {
		if v.snapshot.Lane+action.Offset() == target {
			v.runtime.Action = action
			v.runtime.Lane = target
			return nil
		}
	}
	return fmt.Errorf("%w: lane %d is not adjacent to lane %d of vehicle %d",
		entity.ErrLaneOutOfRange, target, v.snapshot.Lane, id)
}

// StepKinematics 运动学积分并推进时钟
// 功能：积分全部车辆，提交runtime，重建链表顺序，推进时钟并记录新快照
// 参数：dt-时间步长（秒），必须为正
// 算法说明：
// 1. 并行积分每辆车的runtime
// 2. 登记车道变更并同步链表节点位置
// 3. 提交runtime到snapshot
// 4. 各链表先移除、后合并，恢复按位置排序
// 5. 时钟推进dt，在新时刻为每辆车追加一条快照
func (m *VehicleManager) StepKinematics(dt float64) {
	if !(dt > 0) {
		log.Panicf("StepKinematics: non-positive dt %v", dt)
	}
	parallel.GoFor(m.vehicles, func(v *Vehicle) { v.update(dt) })
	parallel.GoFor(m.vehicles, func(v *Vehicle) { v.prepareNode(m.lanes) })
	parallel.GoFor(m.vehicles, func(v *Vehicle) { v.prepare() })
	parallel.GoFor(m.lanes, func(l *laneList) { l.prepareRemove() })
	parallel.GoFor(append(slices.Clone(m.lanes), m.all), func(l *laneList) { l.prepareMerge() })

	clock := m.ctx.Clock()
	clock.Advance(dt)
	for _, v := range m.vehicles {
		m.history.append(v.state(clock.T))
	}
	log.Debugf("VehicleManager: step to %v", clock.T)
}

// History 状态历史
func (m *VehicleManager) History() entity.IStateHistory {
	return m.history
}

func toInterfaces(vs []*Vehicle) []entity.IVehicle {
	return lo.Map(vs, func(v *Vehicle, _ int) entity.IVehicle { return v })
}
