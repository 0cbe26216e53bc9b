package entity

// ParamType 设备参数类型。未识别的类型按文本处理。
type ParamType string

const (
	ParamText     ParamType = "text"
	ParamNumber   ParamType = "number"
	ParamBoolean  ParamType = "boolean"
	ParamDatetime ParamType = "datetime"
	ParamSelect   ParamType = "select"
)

// ParameterSpec 设备参数规格，驱动动态表单控件的生成
type ParameterSpec struct {
	Key      string    `json:"key"`
	Label    string    `json:"label,omitempty"`
	Type     ParamType `json:"type,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	Required bool      `json:"required,omitempty"`
	Default  any       `json:"default,omitempty"`
	Options  []string  `json:"options,omitempty"`
	Step     string    `json:"step,omitempty"`
}

// MaterialDefinition 工段物料目录条目
type MaterialDefinition struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Supplier string   `json:"supplier,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Stock    *float64 `json:"stock,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// EquipmentDefinition 工段设备目录条目，附带类型化参数规格
type EquipmentDefinition struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Notes      string          `json:"notes,omitempty"`
	Parameters []ParameterSpec `json:"parameters,omitempty"`
}

// QualityDefinition 工段检测项目目录条目
type QualityDefinition struct {
	Item          string   `json:"item"`
	Unit          string   `json:"unit,omitempty"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	StandardValue any      `json:"standard_value,omitempty"`
	Device        string   `json:"device,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// SegmentDefinition 单个工段的三类目录定义。空列表表示该工段未配置目录，
// 表单退化为手动录入。
type SegmentDefinition struct {
	Materials []MaterialDefinition  `json:"materials"`
	Equipment []EquipmentDefinition `json:"equipment"`
	Quality   []QualityDefinition   `json:"quality"`
}

// Empty 三类目录是否均未配置
func (d SegmentDefinition) Empty() bool {
	return len(d.Materials) == 0 && len(d.Equipment) == 0 && len(d.Quality) == 0
}

// FieldColumn 记录字段配置中的单列定义
type FieldColumn struct {
	Key      string   `json:"key"`
	Label    string   `json:"label,omitempty"`
	Required bool     `json:"required,omitempty"`
	Type     string   `json:"type,omitempty"`
	Default  any      `json:"default,omitempty"`
	Options  []string `json:"options,omitempty"`
	Column   string   `json:"column,omitempty"`
}

// FieldSection 一类记录的字段配置（列 + 扩展字段 / 设备参数）
type FieldSection struct {
	Columns    []FieldColumn   `json:"columns,omitempty"`
	Extras     []FieldColumn   `json:"extras,omitempty"`
	Parameters []ParameterSpec `json:"parameters,omitempty"`
}

// RecordFieldConfig 全局记录字段配置接口的响应
type RecordFieldConfig struct {
	Materials            FieldSection `json:"materials"`
	Equipment            FieldSection `json:"equipment"`
	Quality              FieldSection `json:"quality"`
	BatchStatusOptions   []string     `json:"batch_status_options,omitempty"`
	BatchCompletedStatus string       `json:"batch_completed_status,omitempty"`
}

// EquipmentStatusOptions 从设备字段配置中提取状态列的选项
func (c RecordFieldConfig) EquipmentStatusOptions() []string {
	for _, column := range c.Equipment.Columns {
		if column.Key == "status" && len(column.Options) > 0 {
			return column.Options
		}
	}
	return nil
}
