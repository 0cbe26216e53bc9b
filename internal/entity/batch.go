package entity

// 批号状态（服务端可通过字段配置覆盖完成状态的展示文案）
const (
	BatchStatusInProgress = "进行中"
	BatchStatusCompleted  = "已完成"
	BatchStatusPaused     = "暂停"
	BatchStatusAbnormal   = "异常"
)

// DefaultBatchStatusOptions 默认批号状态选项
func DefaultBatchStatusOptions() []string {
	return []string{BatchStatusInProgress, BatchStatusCompleted, BatchStatusPaused, BatchStatusAbnormal}
}

// Batch 批号实体。服务端以 (batch_number, process_segment) 为逻辑组合键，
// 同一生产批次在不同工段各有一行，id 是唯一的技术主键。
// 时间字段保持服务端返回的字符串格式，客户端不做本地解析。
type Batch struct {
	ID             int64            `json:"id"`
	BatchNumber    string           `json:"batch_number"`
	ProductName    string           `json:"product_name"`
	ProcessSegment string           `json:"process_segment"`
	Status         string           `json:"status"`
	StartTime      string           `json:"start_time,omitempty"`
	EndTime        string           `json:"end_time,omitempty"`
	CreatedByName  string           `json:"created_by_name,omitempty"`
	MaterialCount  int              `json:"material_count"`
	EquipmentCount int              `json:"equipment_count"`
	QualityCount   int              `json:"quality_count"`
	SegmentCount   int              `json:"segment_count,omitempty"`
	StageIndex     int              `json:"stage_index,omitempty"`
	StageProgress  int              `json:"stage_progress,omitempty"`
	Summaries      []SegmentSummary `json:"segment_summaries,omitempty"`
}

// SegmentSummary 批号列表接口附带的工段汇总条目
type SegmentSummary struct {
	BatchID        int64  `json:"batch_id"`
	ProcessSegment string `json:"process_segment"`
	Status         string `json:"status"`
	StartTime      string `json:"start_time,omitempty"`
	EndTime        string `json:"end_time,omitempty"`
	MaterialCount  int    `json:"material_count"`
	EquipmentCount int    `json:"equipment_count"`
	QualityCount   int    `json:"quality_count"`
}

// BatchView 展开后的单工段批号视图。批号列表接口按 (batch_number, product_name)
// 聚合返回，客户端展开为逐工段条目供选择器和删除链使用。
type BatchView struct {
	Batch
	LatestBatchID   int64 `json:"latest_batch_id,omitempty"`
	IsLatestSegment bool  `json:"is_latest_segment"`
}

// CompositeKey 人读的"批号-工段"组合键
func (v BatchView) CompositeKey() string {
	return v.BatchNumber + "-" + v.ProcessSegment
}

// ProcessSegment 工艺段配置条目
type ProcessSegment struct {
	ID          int64  `json:"id"`
	SegmentName string `json:"segment_name"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order,omitempty"`
}

// RecordCounts 单工段记录数量汇总
type RecordCounts struct {
	Materials int `json:"materials"`
	Equipment int `json:"equipment"`
	Quality   int `json:"quality"`
}

// SegmentBundle 批号详情中单个工段的完整记录包
type SegmentBundle struct {
	Batch     Batch             `json:"batch"`
	Materials []MaterialRecord  `json:"materials"`
	Equipment []EquipmentRecord `json:"equipment"`
	Quality   []QualityRecord   `json:"quality"`
	Counts    RecordCounts      `json:"counts"`
}

// BatchSummary 批号详情的跨工段汇总
type BatchSummary struct {
	SegmentCount   int `json:"segment_count"`
	MaterialTotal  int `json:"material_total"`
	EquipmentTotal int `json:"equipment_total"`
	QualityTotal   int `json:"quality_total"`
}

// BatchDetail 批号详情接口的完整响应
type BatchDetail struct {
	Batch    Batch           `json:"batch"`
	Segments []SegmentBundle `json:"segments"`
	Summary  BatchSummary    `json:"summary"`
}
