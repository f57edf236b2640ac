package vehicle

import (
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
)

// runtime 车辆运行时数据
// 说明：该数据结构需要可以被直接复制，不应产生浅拷贝带来的副作用
type runtime struct {
	Position float64           // 沿道路方向的位置
	V        float64           // 速度
	A        float64           // 加速度
	Lane     int32             // 所在车道
	Action   entity.LaneAction // 意图行为
}

// Vehicle 车辆实体
// 功能：保存车辆属性与双缓冲的运行时数据
// 说明：getter读取snapshot，写阶段只修改runtime，StepKinematics中统一提交
type Vehicle struct {
	id     int32
	kind   entity.VehicleKind
	length float64
	width  float64
	probs  entity.ActionDistribution

	runtime  runtime // 运行时数据
	snapshot runtime // 快照

	node     *entity.VehicleNode // 所在车道链表中的节点
	roadNode *entity.VehicleNode // 整条道路链表中的节点
}

// newVehicle 根据注册参数创建车辆
// 说明：参数须已经过校验并填充默认值
func newVehicle(spec entity.VehicleSpec) *Vehicle {
	v := &Vehicle{
		id:     spec.ID,
		kind:   spec.Kind,
		length: spec.Length,
		width:  spec.Width,
		probs:  spec.Probabilities,
		runtime: runtime{
			Position: spec.Position,
			V:        spec.V,
			A:        spec.A,
			Lane:     spec.Lane,
			Action:   spec.IntendedAction,
		},
	}
	v.snapshot = v.runtime
	v.node = &entity.VehicleNode{S: spec.Position, Value: v}
	v.roadNode = &entity.VehicleNode{S: spec.Position, Value: v}
	return v
}

func (v *Vehicle) String() string {
	return fmt.Sprintf(
		"Vehicle{ID:%d, %v, Lane:%d, S:%.2f, V:%.2f, A:%.2f, %v}",
		v.id, v.kind, v.snapshot.Lane, v.snapshot.Position, v.snapshot.V, v.snapshot.A, v.snapshot.Action,
	)
}

func (v *Vehicle) ID() int32 {
	return v.id
}

func (v *Vehicle) Kind() entity.VehicleKind {
	return v.kind
}

func (v *Vehicle) Position() float64 {
	return v.snapshot.Position
}

func (v *Vehicle) Lane() int32 {
	return v.snapshot.Lane
}

func (v *Vehicle) V() float64 {
	return v.snapshot.V
}

func (v *Vehicle) A() float64 {
	return v.snapshot.A
}

func (v *Vehicle) Length() float64 {
	return v.length
}

func (v *Vehicle) Width() float64 {
	return v.width
}

func (v *Vehicle) IntendedAction() entity.LaneAction {
	return v.snapshot.Action
}

func (v *Vehicle) Probabilities() entity.ActionDistribution {
	return v.probs
}

// state 当前快照对应的状态记录
func (v *Vehicle) state(t float64) entity.VehicleState {
	return entity.VehicleState{
		Timestamp:      t,
		VehicleID:      v.id,
		Kind:           v.kind,
		Position:       v.snapshot.Position,
		Lane:           v.snapshot.Lane,
		V:              v.snapshot.V,
		A:              v.snapshot.A,
		IntendedAction: v.snapshot.Action,
	}
}

// update 运动学积分，只写runtime
// 算法说明：
// 1. position += v·dt + ½·a·dt²
// 2. v = max(0, v + a·dt)
func (v *Vehicle) update(dt float64) {
	rt := &v.runtime
	rt.Position += rt.V*dt + 0.5*rt.A*dt*dt
	rt.V = math.Max(0, rt.V+rt.A*dt)
}

// prepareNode 登记车道变更并同步链表节点位置
// 参数：lanes-按车道编号排列的车道链表（下标为车道编号-1）
func (v *Vehicle) prepareNode(lanes []*laneList) {
	if v.runtime.Lane != v.snapshot.Lane {
		lanes[v.snapshot.Lane-1].remove(v.node)
		lanes[v.runtime.Lane-1].add(v.node)
	}
	v.node.S = v.runtime.Position
	v.roadNode.S = v.runtime.Position
}

// prepare 提交runtime到snapshot
func (v *Vehicle) prepare() {
	v.snapshot = v.runtime
}
