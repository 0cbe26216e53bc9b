package form

import (
	"context"
	"strconv"
	"strings"

	"github.com/xieshentoken/miniMES/internal/api"
	"github.com/xieshentoken/miniMES/internal/entity"
	"github.com/xieshentoken/miniMES/internal/schema"
)

// QualityForm 质检记录表单
// 选择目录内检测项时单位与标准范围自动填充并锁定，
// 判定结果按标准范围实时预览，最终以服务端判定为准。
type QualityForm struct {
	registry *schema.Registry
	segment  string

	mode     Mode
	recordID int64

	Item       string
	ValueInput string
	Unit       string
	MinInput   string
	MaxInput   string
	Device     string
	Notes      string

	locked          map[string]bool
	originalExtras  map[string]interface{}
	keepAttachments []string
	newFiles        []api.Upload
}

// NewQualityForm 创建质检表单
func NewQualityForm(registry *schema.Registry, segment string) *QualityForm {
	f := &QualityForm{registry: registry, segment: segment}
	f.EnterCreateMode()
	return f
}

// Mode 当前模式
func (f *QualityForm) Mode() Mode { return f.mode }

// RecordID 编辑中的记录id，新建模式为0
func (f *QualityForm) RecordID() int64 { return f.recordID }

// EnterCreateMode 切换到新建模式并清空全部字段
func (f *QualityForm) EnterCreateMode() {
	f.mode = ModeCreate
	f.recordID = 0
	f.Item, f.ValueInput, f.Unit = "", "", ""
	f.MinInput, f.MaxInput = "", ""
	f.Device, f.Notes = "", ""
	f.locked = make(map[string]bool)
	f.originalExtras = nil
	f.keepAttachments = []string{}
	f.newFiles = nil
}

// EnterEditMode 用已有记录填充表单
func (f *QualityForm) EnterEditMode(ctx context.Context, record entity.QualityRecord) {
	f.mode = ModeEdit
	f.recordID = record.ID
	f.Item = record.TestItem
	f.ValueInput = formatFloat(record.TestValue)
	f.Unit = record.Unit
	f.MinInput = formatFloat(record.StandardMin)
	f.MaxInput = formatFloat(record.StandardMax)
	f.Device = record.TestDevice
	f.Notes = record.Notes
	f.originalExtras = record.Attributes
	f.keepAttachments = entity.AttachmentPaths(record.Attachments)
	f.newFiles = nil
	f.locked = make(map[string]bool)
	f.ApplyDefinition(ctx)
}

// ApplyDefinition 按当前检测项套用质检定义
// 命中时填充并锁定单位与标准范围，未命中时保持自由录入。
func (f *QualityForm) ApplyDefinition(ctx context.Context) {
	f.registry.LoadForSegment(ctx, f.segment)
	def, ok := f.registry.QualityByItem(f.segment, strings.TrimSpace(f.Item))
	if !ok {
		f.locked = make(map[string]bool)
		return
	}
	f.Unit = def.Unit
	f.MinInput = formatFloat(def.Min)
	f.MaxInput = formatFloat(def.Max)
	if def.Device != "" {
		f.Device = def.Device
	}
	f.locked = map[string]bool{"unit": true, "standard_min": true, "standard_max": true}
}

// Locked 字段是否被定义锁定为只读
func (f *QualityForm) Locked(field string) bool {
	return f.locked[field]
}

// DefinitionInfo 当前检测项命中目录时的提示文案（标准值、备注），未命中返回空串
func (f *QualityForm) DefinitionInfo() string {
	def, ok := f.registry.QualityByItem(f.segment, strings.TrimSpace(f.Item))
	if !ok {
		return ""
	}
	var parts []string
	if def.StandardValue != nil {
		parts = append(parts, "标准值 "+formatValue(def.StandardValue)+def.Unit)
	}
	if def.Notes != "" {
		parts = append(parts, def.Notes)
	}
	return strings.Join(parts, "；")
}

// KeepAttachments 当前保留的附件路径
func (f *QualityForm) KeepAttachments() []string {
	return f.keepAttachments
}

// RemoveAttachment 从保留列表中移除附件
func (f *QualityForm) RemoveAttachment(path string) {
	kept := f.keepAttachments[:0]
	for _, p := range f.keepAttachments {
		if p != path {
			kept = append(kept, p)
		}
	}
	f.keepAttachments = kept
}

// AddFile 暂存一个待上传文件
func (f *QualityForm) AddFile(filename string, content []byte) {
	f.newFiles = append(f.newFiles, api.Upload{Filename: filename, Content: content})
}

// PreviewResult 按当前输入预览判定结果
func (f *QualityForm) PreviewResult() string {
	value, _ := parseFloat(f.ValueInput)
	min, _ := parseFloat(f.MinInput)
	max, _ := parseFloat(f.MaxInput)
	return entity.EvaluateQualityResult(value, min, max)
}

// Validate 本地校验
func (f *QualityForm) Validate() error {
	if strings.TrimSpace(f.Item) == "" {
		return invalid("test_item", "请选择或输入检测项")
	}
	if _, ok := parseFloat(f.ValueInput); !ok && strings.TrimSpace(f.ValueInput) != "" {
		return invalid("test_value", "检测值必须是数字")
	}
	if _, ok := parseFloat(f.MinInput); !ok && strings.TrimSpace(f.MinInput) != "" {
		return invalid("standard_min", "标准下限必须是数字")
	}
	if _, ok := parseFloat(f.MaxInput); !ok && strings.TrimSpace(f.MaxInput) != "" {
		return invalid("standard_max", "标准上限必须是数字")
	}
	return nil
}

// BuildPayload 校验并组装multipart三段
func (f *QualityForm) BuildPayload() (api.QualityPayload, []string, []api.Upload, error) {
	if err := f.Validate(); err != nil {
		return api.QualityPayload{}, nil, nil, err
	}
	value, _ := parseFloat(f.ValueInput)
	min, _ := parseFloat(f.MinInput)
	max, _ := parseFloat(f.MaxInput)
	payload := api.QualityPayload{
		TestItem:    strings.TrimSpace(f.Item),
		TestValue:   value,
		StandardMin: min,
		StandardMax: max,
		Result:      entity.EvaluateQualityResult(value, min, max),
		Unit:        strings.TrimSpace(f.Unit),
		TestDevice:  strings.TrimSpace(f.Device),
		Notes:       strings.TrimSpace(f.Notes),
		Extras:      f.originalExtras,
	}
	return payload, f.keepAttachments, f.newFiles, nil
}

// formatFloat 浮点指针渲染为输入文本，nil渲染为空
func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

// parseFloat 解析输入文本，空白返回nil
func parseFloat(input string) (*float64, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, true
	}
	number, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, false
	}
	return &number, true
}
