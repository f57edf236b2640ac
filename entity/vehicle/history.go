package vehicle

import (
	"slices"
	"sync"

	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
)

// History 车辆状态历史
// 功能：按车辆记录只追加的状态快照序列，时间严格递增
type History struct {
	data map[int32][]entity.VehicleState
	mtx  sync.RWMutex
}

func newHistory() *History {
	return &History{data: make(map[int32][]entity.VehicleState)}
}

// append 追加一条状态记录，时间不递增时panic
func (h *History) append(s entity.VehicleState) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	states := h.data[s.VehicleID]
	if n := len(states); n > 0 && states[n-1].Timestamp >= s.Timestamp {
		log.Panicf("non-increasing history timestamp for vehicle %d: %v after %v",
			s.VehicleID, s.Timestamp, states[n-1].Timestamp)
	}
	h.data[s.VehicleID] = append(states, s)
}

// Of 车辆的全部历史状态（副本），未知车辆返回nil
func (h *History) Of(id int32) []entity.VehicleState {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return slices.Clone(h.data[id])
}

// Latest 车辆最近一次的状态
func (h *History) Latest(id int32) (entity.VehicleState, bool) {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	states := h.data[id]
	if len(states) == 0 {
		return entity.VehicleState{}, false
	}
	return states[len(states)-1], true
}

// Len 车辆的历史状态数
func (h *History) Len(id int32) int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.data[id])
}

// Snapshot 全部车辆历史的副本
func (h *History) Snapshot() map[int32][]entity.VehicleState {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	out := make(map[int32][]entity.VehicleState, len(h.data))
	for id, states := range h.data {
		out[id] = slices.Clone(states)
	}
	return out
}
