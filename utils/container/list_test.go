package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/container"
)

type testData struct {
	id int32
}

func (t testData) ID() int32 {
	return t.id
}

type node = container.ListNode[testData, struct{}]

func newNode(id int32, s float64) *node {
	return &node{S: s, Value: testData{id: id}}
}

// keys 按顺序收集节点位置与ID
func keys(l *container.List[testData, struct{}]) ([]float64, []int32) {
	ss, ids := []float64{}, []int32{}
	for n := l.First(); n != nil; n = n.Next() {
		ss = append(ss, n.S)
		ids = append(ids, n.Value.ID())
	}
	return ss, ids
}

func TestListInit(t *testing.T) {
	l := container.NewList[testData, struct{}]("empty")
	assert.Nil(t, l.First())
	assert.Nil(t, l.Last())
	assert.Equal(t, 0, l.Len())
	ss, _ := keys(l)
	assert.Empty(t, ss)
}

func TestListOperation(t *testing.T) {
	l := container.NewList[testData, struct{}]("lane 1")

	// ^, 1, ^
	n1 := newNode(1, 1)
	l.PushBack(n1)
	// ^, 2, 1, ^
	n2 := newNode(2, 2)
	n1.InsertBefore(n2)
	// ^, 3, 2, 1, ^
	n3 := newNode(3, 3)
	n2.InsertBefore(n3)
	// ^, 3, 2, 1, 4, ^
	n4 := newNode(4, 4)
	n1.InsertAfter(n4)
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, n3, l.First())
	assert.Equal(t, n4, l.Last())
	assert.Equal(t, n1, n1.Next().Prev())
	assert.Equal(t, l, n1.Parent())
	assert.Panics(t, func() { l.PushBack(n1) })

	// head, 0, 3, 2, 1, 4, tail
	n0 := newNode(0, 0)
	l.First().InsertBefore(n0)
	unsorted := l.PopUnsorted()
	assert.ElementsMatch(t, []*node{n2, n1}, unsorted)
	assert.Equal(t, 3, l.Len())

	l.Merge(unsorted)
	ss, _ := keys(l)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, ss)
	assert.Equal(t, n0, l.First())
	assert.Equal(t, n4, l.Last())

	l.Remove(n4)
	assert.Equal(t, n3, l.Last())
	assert.Equal(t, 4, l.Len())
	assert.Nil(t, n4.Parent())
	assert.Panics(t, func() { l.Remove(n4) })
}

func TestListEqualKeysOrderedByID(t *testing.T) {
	l := container.NewList[testData, struct{}]("ties")
	a, b, c := newNode(7, 10), newNode(3, 10), newNode(5, 10)
	l.Merge([]*node{a, b, c})
	_, ids := keys(l)
	assert.Equal(t, []int32{3, 5, 7}, ids)

	// 位置变化后重新排序
	b.S = 20
	a.S = 0
	l.Merge(l.PopUnsorted())
	ss, ids := keys(l)
	assert.Equal(t, []float64{0, 10, 20}, ss)
	assert.Equal(t, []int32{7, 5, 3}, ids)
	assert.Equal(t, a, l.First())
	assert.Equal(t, b, l.Last())
}
