package container

import (
	"fmt"
	"log"
	"sort"
)

// IListItem 可放入位置链表的元素
// 功能：定义车辆作为链表元素时需要暴露的信息
// 说明：ID用于位置相同时的确定性排序，位置由节点的S保存
type IListItem interface {
	ID() int32 // 获取ID
}

// ListNode 双向链表中的节点
// 功能：以位置S为键保存一个元素，附带额外信息Extra
type ListNode[T IListItem, E any] struct {
	parent     *List[T, E]     // 所属链表
	prev, next *ListNode[T, E] // 前驱和后继节点
	S          float64         // 键值（沿道路方向的位置）
	Value      T               // 主要值
	Extra      E               // 额外信息
}

func (n *ListNode[T, E]) String() string {
	return fmt.Sprintf("Node{S:%v, ID:%v, Extra:%+v}", n.S, n.Value.ID(), n.Extra)
}

// Prev 前驱节点（位置更小），第一个节点返回nil
func (n *ListNode[T, E]) Prev() *ListNode[T, E] {
	return n.prev
}

// Next 后继节点（位置更大），最后一个节点返回nil
func (n *ListNode[T, E]) Next() *ListNode[T, E] {
	return n.next
}

// Parent 节点所在的链表，不在链表中时为nil
func (n *ListNode[T, E]) Parent() *List[T, E] {
	return n.parent
}

// before 节点排序规则：先按S升序，S相同时按ID升序
func (n *ListNode[T, E]) before(o *ListNode[T, E]) bool {
	if n.S != o.S {
		return n.S < o.S
	}
	return n.Value.ID() < o.Value.ID()
}

// InsertBefore 在节点前插入新节点
// 参数：add-要插入的新节点，不能已在任何链表中
func (n *ListNode[T, E]) InsertBefore(add *ListNode[T, E]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.next = n
	add.prev = n.prev
	n.prev = add
	if add.prev != nil {
		add.prev.next = add
	} else {
		add.parent.head = add
	}
	n.parent.length++
}

// InsertAfter 在节点后插入新节点
// 参数：add-要插入的新节点，不能已在任何链表中
func (n *ListNode[T, E]) InsertAfter(add *ListNode[T, E]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.prev = n
	add.next = n.next
	n.next = add
	if add.next != nil {
		add.next.prev = add
	} else {
		add.parent.tail = add
	}
	n.parent.length++
}

// List 按位置排序的双向链表
// 功能：维护一条车道（或整条道路）上车辆的纵向顺序
// 说明：位置变化后通过PopUnsorted+Merge恢复有序，代价与乱序节点数相关
type List[T IListItem, E any] struct {
	ID         string          // 链表标识符
	head, tail *ListNode[T, E] // 头尾节点指针
	length     int             // 链表长度
}

// NewList 创建空链表
func NewList[T IListItem, E any](id string) *List[T, E] {
	return &List[T, E]{ID: id}
}

func (l *List[T, E]) String() string {
	return fmt.Sprintf("List{ID:%v, Len:%d}", l.ID, l.length)
}

// Len 链表长度
func (l *List[T, E]) Len() int {
	return l.length
}

// PushBack 向链表尾部插入节点（不检查顺序）
func (l *List[T, E]) PushBack(add *ListNode[T, E]) {
	if add.parent != nil {
		log.Panic("push back node who already in list")
	}
	add.next = nil
	add.prev = nil
	if l.tail == nil {
		add.parent = l
		l.head = add
		l.tail = add
		l.length++
	} else {
		l.tail.InsertAfter(add)
	}
}

// Remove 从链表中移除节点
// 参数：node-要删除的节点，必须属于本链表
func (l *List[T, E]) Remove(node *ListNode[T, E]) {
	if node.parent != l {
		log.Panic("remove node from wrong list")
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	node.parent = nil
	l.length--
}

// First 头部节点（位置最小），空链表返回nil
func (l *List[T, E]) First() *ListNode[T, E] {
	return l.head
}

// Last 尾部节点（位置最大），空链表返回nil
func (l *List[T, E]) Last() *ListNode[T, E] {
	return l.tail
}

// PopUnsorted 移除逆序节点
// 功能：移除所有排在比自己"大"的前驱之后的节点
// 返回：被移除的节点
// 说明：剩余节点保持有序，被移除的节点可通过Merge重新插入
func (l *List[T, E]) PopUnsorted() (unsorted []*ListNode[T, E]) {
	for node := l.head; node != nil; {
		next := node.next
		if node.prev != nil && node.before(node.prev) {
			l.Remove(node)
			unsorted = append(unsorted, node)
		}
		node = next
	}
	return unsorted
}

// Merge 批量有序插入节点
// 算法说明：
// 1. 将待插入节点排序
// 2. 与链表做一次归并，整体复杂度O(k log k + n)
func (l *List[T, E]) Merge(adds []*ListNode[T, E]) {
	sort.Slice(adds, func(i, j int) bool {
		return adds[i].before(adds[j])
	})
	node := l.head
	for _, add := range adds {
		for node != nil && node.before(add) {
			node = node.next
		}
		if node != nil {
			node.InsertBefore(add)
		} else {
			l.PushBack(add)
		}
	}
}
