package vehicle_test

import (
	"testing"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/clock"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
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

func newTestManager(t *testing.T, lanes int32, specs ...entity.VehicleSpec) (*testContext, *vehicle.VehicleManager) {
	t.Helper()
	rc, err := config.NewRuntimeConfig(config.Config{
		Control: config.Control{Step: config.ControlStep{Interval: 0.1, Duration: 10}},
	})
	require.NoError(t, err)
	ctx := &testContext{clock: clock.New(rc.C.Step), rc: rc}
	ctx.vm = vehicle.NewManager(ctx)
	require.NoError(t, ctx.vm.Init(entity.RoadConfig{Lanes: lanes, LaneWidth: 3.5, Length: 500}, specs))
	return ctx, ctx.vm
}

func cav(id int32, lane int32, pos, v, a float64) entity.VehicleSpec {
	return entity.VehicleSpec{ID: id, Kind: entity.CAV, Lane: lane, Position: pos, V: v, A: a}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	_, m := newTestManager(t, 3, cav(1, 1, 0, 10, 0))
	err := m.Add(cav(1, 2, 50, 5, 0))
	assert.ErrorIs(t, err, entity.ErrDuplicateID)
	assert.Len(t, m.Vehicles(), 1)
	assert.Equal(t, int32(1), m.Get(1).Lane())
	assert.Equal(t, 1, m.History().Len(1))
}

func TestAddValidation(t *testing.T) {
	_, m := newTestManager(t, 3)
	assert.ErrorIs(t, m.Add(cav(1, 0, 0, 0, 0)), entity.ErrLaneOutOfRange)
	assert.ErrorIs(t, m.Add(cav(1, 4, 0, 0, 0)), entity.ErrLaneOutOfRange)
	assert.ErrorIs(t, m.Add(cav(1, 1, 0, -1, 0)), entity.ErrInvalidVehicle)
	assert.ErrorIs(t, m.Add(entity.VehicleSpec{ID: 1, Lane: 1}), entity.ErrInvalidVehicle)
	assert.ErrorIs(t, m.Add(entity.VehicleSpec{
		ID: 1, Kind: entity.HDV, Lane: 1, Probabilities: entity.ActionDistribution{-1, 1, 1},
	}), entity.ErrInvalidVehicle)
	assert.Empty(t, m.Vehicles())
}

func TestInitIsAllOrNothing(t *testing.T) {
	ctx, _ := newTestManager(t, 2)
	m := vehicle.NewManager(ctx)
	err := m.Init(entity.RoadConfig{Lanes: 2}, []entity.VehicleSpec{cav(1, 1, 0, 0, 0), cav(2, 3, 0, 0, 0)})
	assert.ErrorIs(t, err, entity.ErrLaneOutOfRange)
	assert.Empty(t, m.Vehicles())
	assert.Zero(t, m.History().Len(1))

	assert.ErrorIs(t, m.Init(entity.RoadConfig{Lanes: 0}, nil), entity.ErrLaneOutOfRange)
}

func TestAddDefaults(t *testing.T) {
	_, m := newTestManager(t, 3,
		entity.VehicleSpec{ID: 1, Kind: entity.HDV, Lane: 2},
		entity.VehicleSpec{ID: 2, Kind: entity.HDV, Lane: 2, Position: 10, Probabilities: entity.ActionDistribution{2, 1, 1}},
	)
	v1 := m.Get(1)
	assert.Equal(t, entity.DefaultVehicleLength, v1.Length())
	assert.Equal(t, entity.DefaultVehicleWidth, v1.Width())
	assert.Equal(t, entity.DefaultHDVDistribution, v1.Probabilities())
	assert.Equal(t, entity.KeepLane, v1.IntendedAction())

	p := m.Get(2).Probabilities()
	assert.InDelta(t, 0.5, p.Get(entity.KeepLane), 1e-12)
	assert.InDelta(t, 0.25, p.Get(entity.ChangeLeft), 1e-12)
	assert.InDelta(t, 1.0, p.Sum(), 1e-12)
}

func TestGetOrError(t *testing.T) {
	_, m := newTestManager(t, 1, cav(7, 1, 0, 0, 0))
	v, err := m.GetOrError(7)
	require.NoError(t, err)
	assert.Equal(t, int32(7), v.ID())

	_, err = m.GetOrError(8)
	assert.ErrorIs(t, err, entity.ErrUnknownVehicleID)
	assert.Panics(t, func() { m.Get(8) })
}

func TestNeighborQueries(t *testing.T) {
	_, m := newTestManager(t, 2,
		cav(4, 1, 25, 0, 0),
		cav(3, 1, 10, 0, 0),
		cav(2, 1, 10, 0, 0),
		cav(1, 1, 0, 0, 0),
		cav(5, 2, 5, 0, 0),
	)

	ahead, d, err := m.VehicleAhead(1, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ahead.ID())
	assert.Equal(t, 10.0, d)

	ahead, d, err = m.VehicleAhead(3, true)
	require.NoError(t, err)
	assert.Equal(t, int32(4), ahead.ID())
	assert.Equal(t, 15.0, d)

	ahead, d, err = m.VehicleAhead(1, false)
	require.NoError(t, err)
	assert.Equal(t, int32(5), ahead.ID())
	assert.Equal(t, 5.0, d)

	ahead, d, err = m.VehicleAhead(4, true)
	require.NoError(t, err)
	assert.Nil(t, ahead)
	assert.Equal(t, mathutil.INF, d)

	behind, d, err := m.VehicleBehind(4, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), behind.ID())
	assert.Equal(t, 15.0, d)

	behind, d, err = m.VehicleBehind(2, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), behind.ID())
	assert.Equal(t, 10.0, d)

	behind, _, err = m.VehicleBehind(5, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), behind.ID())

	behind, d, err = m.VehicleBehind(5, true)
	require.NoError(t, err)
	assert.Nil(t, behind)
	assert.Equal(t, mathutil.INF, d)

	_, _, err = m.VehicleAhead(99, true)
	assert.ErrorIs(t, err, entity.ErrUnknownVehicleID)
	_, _, err = m.VehicleBehind(99, false)
	assert.ErrorIs(t, err, entity.ErrUnknownVehicleID)
}

func TestFilters(t *testing.T) {
	_, m := newTestManager(t, 3,
		cav(3, 2, 0, 0, 0),
		entity.VehicleSpec{ID: 1, Kind: entity.HDV, Lane: 2, Position: 30},
		cav(2, 1, 0, 0, 0),
	)
	ids := func(vs []entity.IVehicle) []int32 {
		out := []int32{}
		for _, v := range vs {
			out = append(out, v.ID())
		}
		return out
	}
	assert.Equal(t, []int32{1, 2, 3}, ids(m.Vehicles()))
	assert.Equal(t, []int32{1, 3}, ids(m.VehiclesInLane(2)))
	assert.Empty(t, m.VehiclesInLane(3))
	assert.Equal(t, []int32{2, 3}, ids(m.VehiclesByType(entity.CAV)))
	assert.Equal(t, []int32{1}, ids(m.VehiclesByType(entity.HDV)))

	found, failed := m.Find([]int32{3, 42})
	assert.Equal(t, []int32{3}, ids(found))
	assert.Equal(t, []int32{42}, failed)
}

func TestStepKinematics(t *testing.T) {
	ctx, m := newTestManager(t, 1,
		cav(1, 1, 0, 1, -100),
		cav(2, 1, 100, 10, 2),
	)
	m.StepKinematics(0.1)

	v1 := m.Get(1)
	assert.InDelta(t, -0.4, v1.Position(), 1e-12)
	assert.Equal(t, 0.0, v1.V())
	v2 := m.Get(2)
	assert.InDelta(t, 101.01, v2.Position(), 1e-12)
	assert.InDelta(t, 10.2, v2.V(), 1e-12)
	assert.InDelta(t, 0.1, ctx.clock.T, 1e-12)

	for range 20 {
		m.StepKinematics(0.1)
		for _, v := range m.Vehicles() {
			assert.GreaterOrEqual(t, v.V(), 0.0)
		}
	}

	states := m.History().Of(1)
	assert.Len(t, states, 22)
	for i := 1; i < len(states); i++ {
		assert.Greater(t, states[i].Timestamp, states[i-1].Timestamp)
	}
	latest, ok := m.History().Latest(2)
	require.True(t, ok)
	assert.Equal(t, m.Get(2).Position(), latest.Position)
	assert.InDelta(t, 2.1, latest.Timestamp, 1e-9)
	assert.Len(t, m.History().Snapshot(), 2)
}

func TestStepKinematicsReordersLanes(t *testing.T) {
	_, m := newTestManager(t, 1,
		cav(1, 1, 0, 20, 0),
		cav(2, 1, 1, 0, 0),
	)
	ahead, _, err := m.VehicleAhead(1, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ahead.ID())

	m.StepKinematics(0.1)

	ahead, d, err := m.VehicleAhead(2, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), ahead.ID())
	assert.InDelta(t, 1.0, d, 1e-12)
	behind, _, err := m.VehicleBehind(1, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), behind.ID())
}

func TestChangeLane(t *testing.T) {
	_, m := newTestManager(t, 3,
		cav(1, 2, 0, 0, 0),
		cav(2, 1, 10, 0, 0),
	)
	assert.ErrorIs(t, m.ChangeLane(1, 4), entity.ErrLaneOutOfRange)
	assert.ErrorIs(t, m.ChangeLane(2, 3), entity.ErrLaneOutOfRange)
	assert.ErrorIs(t, m.ChangeLane(9, 1), entity.ErrUnknownVehicleID)

	require.NoError(t, m.ChangeLane(1, 1))
	// 写阶段的修改在积分前不可见
	assert.Equal(t, int32(2), m.Get(1).Lane())
	assert.Equal(t, entity.KeepLane, m.Get(1).IntendedAction())

	m.StepKinematics(0.1)
	assert.Equal(t, int32(1), m.Get(1).Lane())
	assert.Equal(t, entity.ChangeLeft, m.Get(1).IntendedAction())
	assert.Len(t, m.VehiclesInLane(1), 2)
	assert.Empty(t, m.VehiclesInLane(2))

	ahead, d, err := m.VehicleAhead(1, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ahead.ID())
	assert.Equal(t, 10.0, d)

	require.NoError(t, m.SetIntendedAction(2, entity.ChangeRight))
	assert.ErrorIs(t, m.SetIntendedAction(2, entity.LaneAction(7)), entity.ErrInvalidVehicle)
	m.StepKinematics(0.1)
	assert.Equal(t, entity.ChangeRight, m.Get(2).IntendedAction())
	assert.Equal(t, int32(1), m.Get(2).Lane())
}

func TestChangeLaneDirection(t *testing.T) {
	_, m := newTestManager(t, 3, cav(1, 1, 0, 0, 0))
	assert.Equal(t, int32(entity.LEFT), entity.ChangeLeft.Offset())
	assert.Equal(t, int32(entity.RIGHT), entity.ChangeRight.Offset())
	assert.Zero(t, entity.KeepLane.Offset())

	// 目标为当前车道或不相邻车道时报错
	assert.ErrorIs(t, m.ChangeLane(1, 1), entity.ErrLaneOutOfRange)
	assert.ErrorIs(t, m.ChangeLane(1, 3), entity.ErrLaneOutOfRange)

	require.NoError(t, m.ChangeLane(1, 2))
	m.StepKinematics(0.1)
	assert.Equal(t, int32(2), m.Get(1).Lane())
	assert.Equal(t, entity.ChangeRight, m.Get(1).IntendedAction())
}
