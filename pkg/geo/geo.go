// Package geo 提供区域完成度计算所需的几何工具。
//
// 坐标约定：所有点均为 (经度, 纬度) 顺序的 WGS84 坐标，与区域边界、
// 完成标记以及 GeoJSON 线上格式保持一致，无需重投影即可组合。
// 面积计算在以区域包围盒中心为原点的局部等距圆柱投影下进行，单位为平方米。
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	pkgerrors "github.com/cliff-simpkins/scouting-flyers/pkg/errors"
)

// earthRadius 与 orb/geo 的球面距离使用同一地球半径（米）
const earthRadius = orb.EarthRadius

var (
	ErrInvalidRing  = fmt.Errorf("%w: 区域边界不是有效的闭合多边形", pkgerrors.ErrGeometry)
	ErrInvalidPoint = fmt.Errorf("%w: 坐标无效", pkgerrors.ErrValidation)
)

// Disk 以 Center 为圆心、RadiusM 米为半径的圆形完成标记
type Disk struct {
	Center  orb.Point
	RadiusM float64
}

// ValidatePoint 校验经纬度是否为有限值且在合法范围内
func ValidatePoint(p orb.Point) error {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return ErrInvalidPoint
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return ErrInvalidPoint
	}
	return nil
}

// ValidateRing 校验边界：至少 4 个点、首尾闭合、每个顶点合法。
// 面积为零的环仍视为有效，由调用方按 0% 处理。
func ValidateRing(ring orb.Ring) error {
	if len(ring) < 4 {
		return ErrInvalidRing
	}
	if !ring.Closed() {
		return ErrInvalidRing
	}
	for _, p := range ring {
		if ValidatePoint(p) != nil {
			return ErrInvalidRing
		}
	}
	return nil
}

// projector 局部等距圆柱投影：经纬度 → 以米为单位的平面坐标
type projector struct {
	lon0, lat0 float64
	kx, ky     float64
}

// newProjector 以包围盒中心为原点，使投影结果与顶点顺序、起点无关
func newProjector(ring orb.Ring) projector {
	b := ring.Bound()
	center := b.Center()
	ky := earthRadius * math.Pi / 180
	return projector{
		lon0: center.Lon(),
		lat0: center.Lat(),
		kx:   ky * math.Cos(center.Lat()*math.Pi/180),
		ky:   ky,
	}
}

func (p projector) project(pt orb.Point) orb.Point {
	return orb.Point{(pt.Lon() - p.lon0) * p.kx, (pt.Lat() - p.lat0) * p.ky}
}

func (p projector) projectRing(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, pt := range ring {
		out[i] = p.project(pt)
	}
	return out
}

// PolygonArea 返回边界的平面面积（平方米），始终为非负数。
// 环按隐式闭合处理，顶点列表旋转或反转不影响结果。
func PolygonArea(ring orb.Ring) float64 {
	if len(ring) < 3 {
		return 0
	}
	return shoelace(newProjector(ring).projectRing(ring))
}

func shoelace(ring orb.Ring) float64 {
	n := len(ring)
	var sum float64
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return math.Abs(sum) / 2
}

// DiskArea 圆面积 π·r²
func DiskArea(radiusM float64) float64 {
	return math.Pi * radiusM * radiusM
}
