package dto

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	pkgerrors "github.com/cliff-simpkins/scouting-flyers/pkg/errors"
)

// ErrNotGeoJSONPoint 请求体中的坐标不是 GeoJSON Point；归类为校验错误
var ErrNotGeoJSONPoint = fmt.Errorf("%w: point 必须是 GeoJSON Point，坐标顺序为 [经度, 纬度]", pkgerrors.ErrValidation)

// GeoPoint 线上格式为 GeoJSON Point：{"type":"Point","coordinates":[lon,lat]}
// 与区域边界使用同一坐标顺序
type GeoPoint orb.Point

// Orb 转为 orb.Point
func (p GeoPoint) Orb() orb.Point { return orb.Point(p) }

func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(orb.Point(p)))
}

func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return ErrNotGeoJSONPoint
	}
	pt, ok := g.Geometry().(orb.Point)
	if !ok {
		return ErrNotGeoJSONPoint
	}
	*p = GeoPoint(pt)
	return nil
}
