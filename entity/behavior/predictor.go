package behavior

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/entity"
	"github.com/tsinghua-fib-lab/agentsociety-lanechange/utils/randengine"
	"gonum.org/v1/gonum/floats"
)

const (
	followDistance   = 30.0 // 跟驰影响距离（米）
	speedGap         = 5.0  // 前车慢于本车的速度差阈值（米/秒）
	obstacleDistance = 50.0 // 障碍物影响距离（米）
	obstacleKeepLane = 0.2  // 障碍物对保持车道的缩放
	obstacleChange   = 2.0  // 障碍物对合法变道方向的缩放
)

var (
	followFactors = entity.ActionDistribution{0.7, 1.3, 1.3} // 近距离跟驰
	speedFactors  = entity.ActionDistribution{0.6, 1.5, 1.5} // 前车明显更慢
)

// Predictor HDV行为预测器
// 功能：根据前车与障碍物调整HDV的基础行为分布，给出最可能行为或随机采样
// 说明：只读取车辆快照；采样使用构造时注入的随机数引擎，保证可复现
type Predictor struct {
	ctx entity.ITaskContext
	rng *randengine.Engine

	history map[int32][]entity.BehaviorPrediction // 预测历史
	mtx     sync.RWMutex
}

// NewPredictor 创建HDV行为预测器
// 参数：ctx-任务上下文，rng-采样使用的随机数引擎
func NewPredictor(ctx entity.ITaskContext, rng *randengine.Engine) *Predictor {
	return &Predictor{
		ctx:     ctx,
		rng:     rng,
		history: make(map[int32][]entity.BehaviorPrediction),
	}
}

// EstimateDistribution 计算调整后的行为分布
// 功能：从车辆基础分布出发，依次应用独立的乘法调整并归一化
// 参数：v-车辆，obstacles-障碍物列表
// 返回：非负且总和为1的分布
// 算法说明：
// 1. 同车道前车距离小于30米：保持×0.7，左右变道×1.3
// 2. 同车道前车比本车慢5米/秒以上：保持×0.6，左右变道×1.5（与1叠加）
// 3. 最左车道禁止左变道，最右车道禁止右变道
// 4. 同车道前方50米内每个障碍物：保持×0.2，合法的变道方向×2
// 5. 归一化，总和为0时退化为只保持车道
func (p *Predictor) EstimateDistribution(v entity.IVehicle, obstacles []entity.Obstacle) entity.ActionDistribution {
	vm := p.ctx.VehicleManager()
	lanes := vm.Road().Lanes
	probs := v.Probabilities()

	ahead, distance, err := vm.VehicleAhead(v.ID(), true)
	if err != nil {
		log.Warnf("EstimateDistribution: %v", err)
	}
	if ahead != nil && distance < followDistance {
		floats.Mul(probs[:], followFactors[:])
	}
	if ahead != nil && v.V() > ahead.V()+speedGap {
		floats.Mul(probs[:], speedFactors[:])
	}

	if v.Lane() <= 1 {
		probs[entity.ChangeLeft] = 0
	}
	if v.Lane() >= lanes {
		probs[entity.ChangeRight] = 0
	}

	for i := range obstacles {
		o := &obstacles[i]
		if o.Lane != v.Lane() {
			continue
		}
		if d := o.DistanceFrom(v.Position()); d > 0 && d < obstacleDistance {
			probs[entity.KeepLane] *= obstacleKeepLane
			if v.Lane() > 1 {
				probs[entity.ChangeLeft] *= obstacleChange
			}
			if v.Lane() < lanes {
				probs[entity.ChangeRight] *= obstacleChange
			}
		}
	}
	return probs.Normalized()
}

// hdv 查找HDV，未知ID或非HDV时返回错误
func (p *Predictor) hdv(id int32) (entity.IVehicle, error) {
	v, err := p.ctx.VehicleManager().GetOrError(id)
	if err != nil {
		return nil, err
	}
	if v.Kind() != entity.HDV {
		return nil, fmt.Errorf("%w: vehicle %d is %v", entity.ErrNotAnHDV, id, v.Kind())
	}
	return v, nil
}

// PredictAction 预测HDV最可能的行为
// 参数：id-车辆ID，obstacles-障碍物列表
// 返回：预测结果（概率最大的行为及其概率），并记入预测历史；非HDV返回ErrNotAnHDV
func (p *Predictor) PredictAction(id int32, obstacles []entity.Obstacle) (entity.BehaviorPrediction, error) {
	v, err := p.hdv(id)
	if err != nil {
		return entity.BehaviorPrediction{}, err
	}
	probs := p.EstimateDistribution(v, obstacles)
	action, confidence := probs.ArgMax()
	prediction := entity.BehaviorPrediction{
		VehicleID:       id,
		PredictedAction: action,
		Confidence:      confidence,
		Probabilities:   probs,
		Timestamp:       p.ctx.Clock().T,
	}
	p.mtx.Lock()
	p.history[id] = append(p.history[id], prediction)
	p.mtx.Unlock()
	return prediction, nil
}

// SampleActions 按调整后的分布对HDV行为有放回地采样n次
// 参数：id-车辆ID，obstacles-障碍物列表，n-采样次数
// 返回：采样得到的行为；非HDV返回ErrNotAnHDV
// 说明：采样不记入预测历史
func (p *Predictor) SampleActions(id int32, obstacles []entity.Obstacle, n int) ([]entity.LaneAction, error) {
	v, err := p.hdv(id)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []entity.LaneAction{}, nil
	}
	probs := p.EstimateDistribution(v, obstacles)
	return lo.Map(p.rng.Choices(probs[:], n), func(i int, _ int) entity.LaneAction {
		return entity.LaneAction(i)
	}), nil
}

// PredictAll 预测全部HDV
// 返回：车辆ID到预测结果的映射
func (p *Predictor) PredictAll(obstacles []entity.Obstacle) map[int32]entity.BehaviorPrediction {
	hdvs := p.ctx.VehicleManager().VehiclesByType(entity.HDV)
	predictions := make(map[int32]entity.BehaviorPrediction, len(hdvs))
	for _, v := range hdvs {
		prediction, err := p.PredictAction(v.ID(), obstacles)
		if err != nil {
			log.Panicf("PredictAll: %v", err)
		}
		predictions[v.ID()] = prediction
	}
	return predictions
}

// History 车辆的预测历史（副本）
func (p *Predictor) History(id int32) []entity.BehaviorPrediction {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return slices.Clone(p.history[id])
}
