package entity

import "git.fiblab.net/general/common/v2/mathutil"

// DistanceFrom 障碍物相对position的纵向距离，正值表示在前方
func (o *Obstacle) DistanceFrom(position float64) float64 {
	return o.Position - position
}

// NearestObstacleAhead 查找车道上严格位于position前方的最近障碍物
// 参数：lane-车道，position-位置，obstacles-障碍物列表，filter-额外筛选条件（可为nil）
// 返回：最近的障碍物与距离，不存在时返回nil与INF
// 说明：距离相同时取ID较小者；Passable不影响查找
func NearestObstacleAhead(
	lane int32, position float64, obstacles []Obstacle, filter func(*Obstacle) bool,
) (*Obstacle, float64) {
	var nearest *Obstacle
	minDistance := mathutil.INF
	for i := range obstacles {
		o := &obstacles[i]
		if o.Lane != lane {
			continue
		}
		if filter != nil && !filter(o) {
			continue
		}
		d := o.DistanceFrom(position)
		if d <= 0 {
			continue
		}
		if d < minDistance || (d == minDistance && nearest != nil && o.ID < nearest.ID) {
			nearest = o
			minDistance = d
		}
	}
	return nearest, minDistance
}
