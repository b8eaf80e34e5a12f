package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Distance 两点之间的球面距离（米，Haversine）
func Distance(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// BoundAround 返回以 p 为中心、向四周扩展 meters 米的经纬度包围盒，用于数据库侧的粗筛
func BoundAround(p orb.Point, meters float64) orb.Bound {
	return geo.NewBoundAroundPoint(p, meters)
}

// NearestIndex 在 points 中查找距离 p 不超过 maxDistM 的最近点。
//
// points 须按创建先后排列：距离相同时取下标更小（更早创建）的点。
// 未找到时返回 -1。
func NearestIndex(points []orb.Point, p orb.Point, maxDistM float64) (int, float64) {
	best := -1
	bestD := 0.0
	for i, pt := range points {
		d := Distance(pt, p)
		if d > maxDistM {
			continue
		}
		if best == -1 || d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}
