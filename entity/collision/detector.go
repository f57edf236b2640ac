package collision

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
)

const (
	criticalGap      = 2.0 // 小于该距离的事件为严重
	laneChangeFactor = 3.0 // 变道所需的纵向空间为安全距离的倍数
)

// Detector 碰撞检测器
// 功能：检测车辆之间、车辆与障碍物之间的碰撞风险，维护只追加的碰撞日志
// 说明：检测本身无状态，只读取车辆快照
type Detector struct {
	ctx    entity.ITaskContext
	margin float64 // 安全距离（米）

	history []entity.CollisionEvent
	mtx     sync.RWMutex
}

// NewDetector 创建碰撞检测器，安全距离取自运行时配置
func NewDetector(ctx entity.ITaskContext) *Detector {
	return &Detector{
		ctx:     ctx,
		margin:  ctx.RuntimeConfig().SafetyMargin,
		history: make([]entity.CollisionEvent, 0),
	}
}

// SafetyMargin 安全距离
func (d *Detector) SafetyMargin() float64 {
	return d.margin
}

func severity(distance float64) entity.Severity {
	if distance < criticalGap {
		return entity.SeverityCritical
	}
	return entity.SeverityWarning
}

// CheckRearEnd 追尾检测
// 参数：v1、v2-两辆车
// 返回：是否存在风险与间距，不在同一车道时返回false与INF
// 算法说明：
// 1. 位置较大者为前车，位置相同时ID较大者为前车
// 2. 间距 = 前车位置 - 后车位置 - 前车车长
// 3. 间距小于安全距离时存在风险
// 说明：结果与参数顺序无关
func (d *Detector) CheckRearEnd(v1, v2 entity.IVehicle) (bool, float64) {
	if v1.Lane() != v2.Lane() {
		return false, mathutil.INF
	}
	ahead, behind := v1, v2
	if v2.Position() > v1.Position() || (v2.Position() == v1.Position() && v2.ID() > v1.ID()) {
		ahead, behind = v2, v1
	}
	gap := ahead.Position() - behind.Position() - ahead.Length()
	return gap < d.margin, gap
}

// CheckSide 侧向检测
// 参数：v1、v2-两辆车
// 返回：是否存在风险与车道编号差，不在相邻车道或无风险时返回false与INF
// 说明：纵向间距小于(车长1+车长2)/2+安全距离时存在风险；返回的距离为车道编号差（总是1）而非米数
func (d *Detector) CheckSide(v1, v2 entity.IVehicle) (bool, float64) {
	laneDiff := math.Abs(float64(v1.Lane() - v2.Lane()))
	if laneDiff != 1 {
		return false, mathutil.INF
	}
	if math.Abs(v1.Position()-v2.Position()) < (v1.Length()+v2.Length())/2+d.margin {
		return true, laneDiff
	}
	return false, mathutil.INF
}

// CheckObstacle 障碍物检测
// 参数：v-车辆，obstacles-障碍物列表
// 返回：是否存在风险、障碍物ID与距离
// 说明：只考虑同车道严格位于前方且距离小于安全距离的最近障碍物（含可通行障碍物）
func (d *Detector) CheckObstacle(v entity.IVehicle, obstacles []entity.Obstacle) (bool, int32, float64) {
	o, distance := entity.NearestObstacleAhead(v.Lane(), v.Position(), obstacles, nil)
	if o != nil && distance < d.margin {
		return true, o.ID, distance
	}
	return false, 0, mathutil.INF
}

// CheckAll 全量检测
// 功能：检测每个无序车辆对（ID升序，i<j）与每辆车对全部障碍物，结果记入碰撞日志
// 参数：obstacles-障碍物列表
// 返回：本次检测到的事件
func (d *Detector) CheckAll(obstacles []entity.Obstacle) []entity.CollisionEvent {
	t := d.ctx.Clock().T
	vehicles := d.ctx.VehicleManager().Vehicles()
	events := make([]entity.CollisionEvent, 0)
	for i, v1 := range vehicles {
		for _, v2 := range vehicles[i+1:] {
			if ok, gap := d.CheckRearEnd(v1, v2); ok {
				events = append(events, entity.CollisionEvent{
					Timestamp:  t,
					Kind:       entity.RearEnd,
					Vehicle1ID: v1.ID(),
					Vehicle2ID: v2.ID(),
					Distance:   gap,
					Severity:   severity(gap),
				})
			}
			if ok, laneDiff := d.CheckSide(v1, v2); ok {
				events = append(events, entity.CollisionEvent{
					Timestamp:  t,
					Kind:       entity.Side,
					Vehicle1ID: v1.ID(),
					Vehicle2ID: v2.ID(),
					Distance:   laneDiff,
					Severity:   entity.SeverityWarning,
				})
			}
		}
	}
	for _, v := range vehicles {
		if ok, id, distance := d.CheckObstacle(v, obstacles); ok {
			events = append(events, entity.CollisionEvent{
				Timestamp:  t,
				Kind:       entity.ObstacleHit,
				Vehicle1ID: v.ID(),
				ObstacleID: id,
				Distance:   distance,
				Severity:   severity(distance),
			})
		}
	}
	for _, e := range events {
		log.Debugf("t=%.2f %v", t, e)
	}

	d.mtx.Lock()
	d.history = append(d.history, events...)
	d.mtx.Unlock()
	return events
}

// IsLaneChangeSafe 判断车辆变道到目标车道是否安全
// 参数：id-车辆ID，targetLane-目标车道
// 返回：目标车道上任何其他车辆与本车纵向距离小于3倍安全距离时不安全；目标车道不存在时不安全；
// 未知ID返回ErrUnknownVehicleID
func (d *Detector) IsLaneChangeSafe(id int32, targetLane int32) (bool, error) {
	vm := d.ctx.VehicleManager()
	v, err := vm.GetOrError(id)
	if err != nil {
		return false, err
	}
	if !vm.Road().HasLane(targetLane) {
		return false, nil
	}
	for _, other := range vm.VehiclesInLane(targetLane) {
		if other.ID() == id {
			continue
		}
		if math.Abs(other.Position()-v.Position()) < laneChangeFactor*d.margin {
			return false, nil
		}
	}
	return true, nil
}

// History 全部碰撞事件（副本）
func (d *Detector) History() []entity.CollisionEvent {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	return slices.Clone(d.history)
}

// Count 碰撞事件总数
func (d *Detector) Count() int {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	return len(d.history)
}

// CountBySeverity 某严重程度的碰撞事件数
func (d *Detector) CountBySeverity(s entity.Severity) int {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	return lo.CountBy(d.history, func(e entity.CollisionEvent) bool { return e.Severity == s })
}

func (d *Detector) String() string {
	return fmt.Sprintf("Detector{margin:%v, events:%d}", d.margin, d.Count())
}
