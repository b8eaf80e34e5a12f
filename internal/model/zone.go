package model

// Zone 区域 — 对应 zones
// 边界由上游导入流程维护，本服务视为只读
type Zone struct {
	ZoneID    string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"zone_id"`
	ProjectID string   `gorm:"type:uuid;not null"                             json:"project_id"`
	Name      string   `gorm:"type:varchar(255);not null"                     json:"name"`
	Boundary  Boundary `gorm:"type:jsonb;not null"                            json:"boundary"`
	BaseModel
}

func (Zone) TableName() string { return "zones" }
