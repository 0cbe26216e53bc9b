package form

import (
	"context"
	"strings"

	"github.com/xieshentoken/miniMES/internal/api"
	"github.com/xieshentoken/miniMES/internal/entity"
	"github.com/xieshentoken/miniMES/internal/schema"
)

// EquipmentForm 设备记录表单
// 参数控件按工段定义合成，附件以保留列表加新文件的方式整体提交。
type EquipmentForm struct {
	registry *schema.Registry
	segment  string

	mode     Mode
	recordID int64

	Code      string
	Name      string
	StartTime string
	EndTime   string
	Status    string
	Widgets   []Widget

	StatusOptions []string

	locked             map[string]bool
	originalParameters map[string]interface{}
	keepAttachments    []string
	newFiles           []api.Upload
}

// NewEquipmentForm 创建设备表单
func NewEquipmentForm(ctx context.Context, registry *schema.Registry, segment string) *EquipmentForm {
	f := &EquipmentForm{registry: registry, segment: segment}
	f.StatusOptions = registry.EquipmentStatusOptions(ctx)
	f.EnterCreateMode()
	return f
}

// Mode 当前模式
func (f *EquipmentForm) Mode() Mode { return f.mode }

// RecordID 编辑中的记录id，新建模式为0
func (f *EquipmentForm) RecordID() int64 { return f.recordID }

// EnterCreateMode 切换到新建模式
// 字段清空，状态取第一个选项，附件保留列表为空。
func (f *EquipmentForm) EnterCreateMode() {
	f.mode = ModeCreate
	f.recordID = 0
	f.Code, f.Name, f.StartTime, f.EndTime = "", "", "", ""
	f.Status = ""
	if len(f.StatusOptions) > 0 {
		f.Status = f.StatusOptions[0]
	}
	f.Widgets = nil
	f.locked = make(map[string]bool)
	f.originalParameters = nil
	f.keepAttachments = []string{}
	f.newFiles = nil
}

// EnterEditMode 用已有记录填充表单
// 原始参数整体保留，附件路径作为保留基线。
func (f *EquipmentForm) EnterEditMode(ctx context.Context, record entity.EquipmentRecord) {
	f.mode = ModeEdit
	f.recordID = record.ID
	f.Code = record.EquipmentCode
	f.Name = record.EquipmentName
	f.StartTime = record.StartTime
	f.EndTime = record.EndTime
	f.Status = record.Status
	f.originalParameters = record.Parameters
	f.keepAttachments = entity.AttachmentPaths(record.Attachments)
	f.newFiles = nil
	f.locked = make(map[string]bool)
	f.ApplyDefinition(ctx)
}

// ApplyDefinition 按当前编码套用设备定义
// 命中时填充并锁定名称、按定义参数重建控件；未命中时保持自由录入。
func (f *EquipmentForm) ApplyDefinition(ctx context.Context) {
	f.registry.LoadForSegment(ctx, f.segment)
	def, ok := f.registry.EquipmentByCode(f.segment, strings.TrimSpace(f.Code))
	if !ok {
		f.locked = make(map[string]bool)
		f.Widgets = nil
		return
	}
	f.Name = def.Name
	f.locked = map[string]bool{"name": true}
	f.Widgets = BuildWidgets(def.Parameters, f.originalParameters)
}

// Locked 字段是否被定义锁定为只读
func (f *EquipmentForm) Locked(field string) bool {
	return f.locked[field]
}

// SetParameter 设置控件输入值
func (f *EquipmentForm) SetParameter(key, value string) {
	for i := range f.Widgets {
		if f.Widgets[i].Spec.Key == key {
			f.Widgets[i].Value = value
			return
		}
	}
}

// KeepAttachments 当前保留的附件路径
func (f *EquipmentForm) KeepAttachments() []string {
	return f.keepAttachments
}

// RemoveAttachment 从保留列表中移除附件
func (f *EquipmentForm) RemoveAttachment(path string) {
	kept := f.keepAttachments[:0]
	for _, p := range f.keepAttachments {
		if p != path {
			kept = append(kept, p)
		}
	}
	f.keepAttachments = kept
}

// AddFile 暂存一个待上传文件
func (f *EquipmentForm) AddFile(filename string, content []byte) {
	f.newFiles = append(f.newFiles, api.Upload{Filename: filename, Content: content})
}

// Validate 本地校验
func (f *EquipmentForm) Validate() error {
	if strings.TrimSpace(f.Code) == "" {
		return invalid("equipment_code", "请选择或输入设备编码")
	}
	if strings.TrimSpace(f.Name) == "" {
		return invalid("equipment_name", "设备名称不能为空")
	}
	if strings.TrimSpace(f.StartTime) == "" {
		return invalid("start_time", "开始时间不能为空")
	}
	if strings.TrimSpace(f.Status) == "" {
		return invalid("status", "请选择设备状态")
	}
	return nil
}

// BuildPayload 校验、转换参数并组装multipart三段
func (f *EquipmentForm) BuildPayload() (api.EquipmentPayload, []string, []api.Upload, error) {
	if err := f.Validate(); err != nil {
		return api.EquipmentPayload{}, nil, nil, err
	}
	parameters, err := mergeParameters(f.originalParameters, f.Widgets)
	if err != nil {
		return api.EquipmentPayload{}, nil, nil, err
	}
	payload := api.EquipmentPayload{
		EquipmentCode: strings.TrimSpace(f.Code),
		EquipmentName: strings.TrimSpace(f.Name),
		StartTime:     strings.TrimSpace(f.StartTime),
		EndTime:       strings.TrimSpace(f.EndTime),
		Status:        f.Status,
		Parameters:    parameters,
	}
	return payload, f.keepAttachments, f.newFiles, nil
}
