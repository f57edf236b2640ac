package priority_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/clock"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity/priority"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity/vehicle"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/config"
)

type testContext struct {
	clock *clock.Clock
	vm    *vehicle.VehicleManager
	rc    *config.RuntimeConfig
}

func (c *testContext) Clock() *clock.Clock { return c.clock }
func (c *testContext) VehicleManager() entity.IVehicleManager { return c.vm }
func (c *testContext) RuntimeConfig() *config.RuntimeConfig { return c.rc }

func newManager(t *testing.T, lanes int32, specs ...entity.VehicleSpec) (*testContext, *priority.Manager) {
	t.Helper()
	rc, err := config.NewRuntimeConfig(config.Config{
		Control: config.Control{Step: config.ControlStep{Duration: 10}},
	})
	require.NoError(t, err)
	ctx := &testContext{clock: clock.New(rc.C.Step), rc: rc}
	ctx.vm = vehicle.NewManager(ctx)
	require.NoError(t, ctx.vm.Init(entity.RoadConfig{Lanes: lanes}, specs))
	return ctx, priority.NewManager(ctx)
}

func cav(id, lane int32, pos, v float64) entity.VehicleSpec {
	return entity.VehicleSpec{ID: id, Kind: entity.CAV, Lane: lane, Position: pos, V: v}
}

func TestLaneDropAt40Meters(t *testing.T) {
	ctx, m := newManager(t, 3, cav(1, 2, 0, 10))
	obstacles := []entity.Obstacle{{ID: 100, Lane: 2, Position: 40, Category: entity.LaneDrop}}

	score, reason := m.Score(ctx.vm.Get(1), obstacles)
	assert.InDelta(t, 100.0/41+50.0/41, score, 1e-9)
	assert.InDelta(t, 3.6585, score, 1e-4)
	assert.Equal(t, "Obstacle ahead at 40.0m; Lane ending at 40.0m", reason)
	assert.Equal(t, entity.UrgencyNone, priority.Classify(score))

	m.RecomputeAll(obstacles)
	p, err := m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, entity.UrgencyNone, p.Level)
	assert.False(t, p.RequiresLaneChange)
	assert.Zero(t, p.TargetLane)
	assert.Equal(t, 40.0, p.DistanceToObstacle)
	assert.InDelta(t, 4.0, p.TimeToObstacle, 1e-12)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		score float64
		level entity.UrgencyLevel
	}{
		{100, entity.UrgencyCritical},
		{50, entity.UrgencyCritical},
		{49.999, entity.UrgencyHigh},
		{20, entity.UrgencyHigh},
		{19.999, entity.UrgencyMedium},
		{10, entity.UrgencyMedium},
		{9.999, entity.UrgencyLow},
		{5, entity.UrgencyLow},
		{4.999, entity.UrgencyNone},
		{0, entity.UrgencyNone},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, priority.Classify(c.score), "score %v", c.score)
	}
}

func TestScoreTerms(t *testing.T) {
	ctx, m := newManager(t, 3,
		cav(1, 1, 0, 10),
		cav(2, 1, 9, 10),
		entity.VehicleSpec{ID: 3, Kind: entity.HDV, Lane: 3},
	)
	score, reason := m.Score(ctx.vm.Get(1), nil)
	assert.InDelta(t, 1.0, score, 1e-12)
	assert.Equal(t, "Vehicle ahead at 9.0m", reason)

	score, reason = m.Score(ctx.vm.Get(2), nil)
	assert.Zero(t, score)
	assert.Equal(t, "No urgency", reason)

	score, reason = m.Score(ctx.vm.Get(3), nil)
	assert.Zero(t, score)
	assert.Equal(t, "Not a CAV", reason)

	// 只计最近的障碍物，后方障碍物忽略，可通行障碍物同样计入
	obstacles := []entity.Obstacle{
		{ID: 1, Lane: 1, Position: 29},
		{ID: 2, Lane: 1, Position: 59},
		{ID: 3, Lane: 1, Position: 19, Passable: true},
		{ID: 4, Lane: 1, Position: 5},
	}
	score, reason = m.Score(ctx.vm.Get(2), obstacles)
	assert.InDelta(t, 100.0/11, score, 1e-12)
	assert.Equal(t, "Obstacle ahead at 10.0m", reason)
}

func TestPassableObstacleCounts(t *testing.T) {
	_, m := newManager(t, 3, cav(1, 2, 0, 10))
	m.RecomputeAll([]entity.Obstacle{{ID: 1, Lane: 2, Position: 10, Passable: true}})
	p, err := m.Get(1)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/11, p.Score, 1e-12)
	assert.Equal(t, "Obstacle ahead at 10.0m", p.Reason)
	assert.Equal(t, entity.UrgencyLow, p.Level)
	assert.True(t, p.RequiresLaneChange)
	assert.Equal(t, 10.0, p.DistanceToObstacle)
	assert.Equal(t, int32(1), p.TargetLane)
}

func TestRequiresLaneChangeAndTarget(t *testing.T) {
	_, m := newManager(t, 3,
		cav(1, 2, 0, 10),
		cav(2, 2, 300, 10),
		cav(3, 1, 281, 10),
	)
	obstacles := []entity.Obstacle{
		{ID: 1, Lane: 2, Position: 9},
		{ID: 2, Lane: 1, Position: 30},
		{ID: 3, Lane: 2, Position: 319},
	}
	m.RecomputeAll(obstacles)

	// 100/10 = 10，右侧车道前方无障碍物
	p1, err := m.Get(1)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, p1.Score, 1e-12)
	assert.Equal(t, entity.UrgencyMedium, p1.Level)
	assert.True(t, p1.RequiresLaneChange)
	assert.Equal(t, int32(3), p1.TargetLane)

	// 100/20 = 5，恰好不需要变道
	p2, err := m.Get(2)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, p2.Score, 1e-12)
	assert.Equal(t, entity.UrgencyLow, p2.Level)
	assert.False(t, p2.RequiresLaneChange)
	assert.Zero(t, p2.TargetLane)

	p3, err := m.Get(3)
	require.NoError(t, err)
	assert.Equal(t, mathutil.INF, p3.DistanceToObstacle)
	assert.Equal(t, mathutil.INF, p3.TimeToObstacle)
}

func TestTargetLanePrefersLeftOnTie(t *testing.T) {
	_, m := newManager(t, 3, cav(1, 2, 0, 0))
	m.RecomputeAll([]entity.Obstacle{{ID: 1, Lane: 2, Position: 1}})
	p, err := m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, entity.UrgencyCritical, p.Level)
	assert.Equal(t, int32(1), p.TargetLane)
	assert.Equal(t, mathutil.INF, p.TimeToObstacle)
}

func TestOrderIsTotalAndStable(t *testing.T) {
	_, m := newManager(t, 3,
		cav(5, 1, 0, 10),
		cav(4, 2, 0, 10),
		cav(3, 3, 0, 10),
		cav(2, 1, 500, 10),
		cav(1, 2, 500, 10),
	)
	obstacles := []entity.Obstacle{
		{ID: 1, Lane: 1, Position: 10},
		{ID: 2, Lane: 2, Position: 10},
		{ID: 3, Lane: 3, Position: 4},
	}
	order := m.RecomputeAll(obstacles)
	assert.Equal(t, []int32{3, 4, 5, 1, 2}, order)

	priorities := m.Priorities()
	require.Len(t, priorities, 5)
	for i := 1; i < len(priorities); i++ {
		assert.GreaterOrEqual(t, priorities[i-1].Score, priorities[i].Score)
	}
	assert.Equal(t, order, m.RecomputeAll(obstacles))
	assert.Equal(t, order, m.Order())
}

func TestGetErrors(t *testing.T) {
	_, m := newManager(t, 2,
		cav(1, 1, 0, 0),
		entity.VehicleSpec{ID: 2, Kind: entity.HDV, Lane: 2},
	)
	m.RecomputeAll(nil)
	_, err := m.Get(2)
	assert.ErrorIs(t, err, entity.ErrNotACAV)
	_, err = m.Get(3)
	assert.ErrorIs(t, err, entity.ErrUnknownVehicleID)
	p, err := m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "No urgency", p.Reason)
}
