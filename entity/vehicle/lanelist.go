package vehicle

import (
	"sync"

	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/container"
)

// laneList 按位置排序的车辆链表，支持缓冲式添加和删除
// 功能：车道变更在写阶段登记，统一在prepare中生效，保证读阶段看到的链表不变
type laneList struct {
	list              *entity.VehicleList
	addBuffer         []*entity.VehicleNode
	addBufferMutex    sync.Mutex
	removeBuffer      []*entity.VehicleNode
	removeBufferMutex sync.Mutex
}

// newLaneList 创建新的车道链表
// 参数：id-链表标识符，用于调试和日志
func newLaneList(id string) *laneList {
	return &laneList{
		list:         container.NewList[entity.IVehicle, struct{}](id),
		addBuffer:    make([]*entity.VehicleNode, 0),
		removeBuffer: make([]*entity.VehicleNode, 0),
	}
}

// prepareRemove 移除登记的节点
// 说明：所有车道须先完成移除再执行prepareMerge，节点才能加入新车道
func (l *laneList) prepareRemove() {
	for _, node := range l.removeBuffer {
		l.list.Remove(node)
	}
	l.removeBuffer = l.removeBuffer[:0]
}

// prepareMerge 加入登记的节点并恢复有序
// 说明：调用前节点的S须已更新为最新位置
func (l *laneList) prepareMerge() {
	unsorted := l.list.PopUnsorted()
	l.list.Merge(append(l.addBuffer, unsorted...))
	l.addBuffer = l.addBuffer[:0]
}

// add 登记待加入的节点
func (l *laneList) add(node *entity.VehicleNode) {
	if node.Parent() != nil {
		log.Panic("add node who has parent")
	}
	l.addBufferMutex.Lock()
	l.addBuffer = append(l.addBuffer, node)
	l.addBufferMutex.Unlock()
}

// remove 登记待移除的节点
func (l *laneList) remove(node *entity.VehicleNode) {
	if node.Parent() != l.list {
		log.Panicf("remove node %v (parent=%v) from wrong parent %v", node, node.Parent(), l.list)
	}
	l.removeBufferMutex.Lock()
	l.removeBuffer = append(l.removeBuffer, node)
	l.removeBufferMutex.Unlock()
}

// nearestAhead 链表中严格位于node前方的最近节点
// 说明：链表按(S, ID)排序，第一个S更大的节点即为距离最小、ID最小者
func nearestAhead(node *entity.VehicleNode) *entity.VehicleNode {
	for n := node.Next(); n != nil; n = n.Next() {
		if n.S > node.S {
			return n
		}
	}
	return nil
}

// nearestBehind 链表中严格位于node后方的最近节点
// 说明：位置相同的候选中取ID最小者，即向前越过相同S的节点
func nearestBehind(node *entity.VehicleNode) *entity.VehicleNode {
	for n := node.Prev(); n != nil; n = n.Prev() {
		if n.S < node.S {
			for n.Prev() != nil && n.Prev().S == n.S {
				n = n.Prev()
			}
			return n
		}
	}
	return nil
}
