package entity

// 品质判定结果
const (
	QualityResultPass    = "合格"
	QualityResultFail    = "不合格"
	QualityResultPending = "待定"
)

// 设备默认状态选项（字段配置接口可覆盖）
const (
	EquipmentStatusRunning     = "正常运行"
	EquipmentStatusFault       = "故障"
	EquipmentStatusMaintenance = "维护"
)

// DefaultEquipmentStatusOptions 默认设备状态选项
func DefaultEquipmentStatusOptions() []string {
	return []string{EquipmentStatusRunning, EquipmentStatusFault, EquipmentStatusMaintenance}
}

// Attachment 附件条目。一经保存不可变；记录的附件集合只会被整体替换
// （保留路径 + 新上传文件），不支持逐个修改。
type Attachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// AttachmentPaths 提取附件路径列表，作为编辑时的保留基线
func AttachmentPaths(attachments []Attachment) []string {
	paths := make([]string, 0, len(attachments))
	for _, att := range attachments {
		paths = append(paths, att.Path)
	}
	return paths
}

// MaterialRecord 物料记录。Attributes 保存未在字段配置中声明的扩展属性，
// 客户端编辑时必须原样带回，避免丢失自定义键。
type MaterialRecord struct {
	ID             int64          `json:"id"`
	BatchID        int64          `json:"batch_id"`
	MaterialCode   string         `json:"material_code"`
	MaterialName   string         `json:"material_name"`
	Weight         float64        `json:"weight"`
	Unit           string         `json:"unit,omitempty"`
	Supplier       string         `json:"supplier,omitempty"`
	LotNumber      string         `json:"lot_number,omitempty"`
	RecordTime     string         `json:"record_time,omitempty"`
	RecordedByName string         `json:"recorded_by_name,omitempty"`
	Attributes     map[string]any `json:"attributes,omitempty"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
}

// EquipmentRecord 设备记录。Parameters 的键对应工段定义里的 ParameterSpec.Key，
// 客户端提交时参数值一律为字符串，服务端按配置类型转换。
type EquipmentRecord struct {
	ID             int64          `json:"id"`
	BatchID        int64          `json:"batch_id"`
	EquipmentCode  string         `json:"equipment_code"`
	EquipmentName  string         `json:"equipment_name"`
	StartTime      string         `json:"start_time"`
	EndTime        string         `json:"end_time,omitempty"`
	Status         string         `json:"status"`
	RecordTime     string         `json:"record_time,omitempty"`
	RecordedByName string         `json:"recorded_by_name,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
}

// QualityRecord 品质记录。标准上下限允许为空，Result 由服务端按范围判定。
type QualityRecord struct {
	ID           int64          `json:"id"`
	BatchID      int64          `json:"batch_id"`
	TestItem     string         `json:"test_item"`
	TestValue    *float64       `json:"test_value"`
	Unit         string         `json:"unit,omitempty"`
	StandardMin  *float64       `json:"standard_min,omitempty"`
	StandardMax  *float64       `json:"standard_max,omitempty"`
	Result       string         `json:"result,omitempty"`
	TestDevice   string         `json:"test_device,omitempty"`
	TestTime     string         `json:"test_time,omitempty"`
	TestedByName string         `json:"tested_by_name,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Attachments  []Attachment   `json:"attachments,omitempty"`
}

// RecordCategory 记录类别
type RecordCategory string

const (
	CategoryMaterial  RecordCategory = "material"
	CategoryEquipment RecordCategory = "equipment"
	CategoryQuality   RecordCategory = "quality"
)

// EvaluateQualityResult 按标准范围预判品质结果。上下限或检测值缺失时返回"待定"。
// 服务端入库时执行同样的规则，客户端仅用于提交前的结果预览。
func EvaluateQualityResult(value, standardMin, standardMax *float64) string {
	if value == nil || standardMin == nil || standardMax == nil {
		return QualityResultPending
	}
	if *standardMin <= *value && *value <= *standardMax {
		return QualityResultPass
	}
	return QualityResultFail
}
