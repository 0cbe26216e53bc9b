package form

import (
	"context"
	"strconv"
	"strings"

	"github.com/xieshentoken/miniMES/internal/api"
	"github.com/xieshentoken/miniMES/internal/entity"
	"github.com/xieshentoken/miniMES/internal/schema"
)

// MaterialForm 物料记录表单
// 选择目录内编码时名称/供应商/单位自动填充并锁定，
// 手输目录外编码时全部字段保持可编辑（兼容外购与历史物料）。
type MaterialForm struct {
	registry *schema.Registry
	segment  string

	mode     Mode
	recordID int64

	Code        string
	Name        string
	Supplier    string
	Unit        string
	LotNumber   string
	WeightInput string

	locked         map[string]bool
	originalExtras map[string]interface{}
}

// NewMaterialForm 创建物料表单
func NewMaterialForm(registry *schema.Registry, segment string) *MaterialForm {
	f := &MaterialForm{registry: registry, segment: segment}
	f.EnterCreateMode()
	return f
}

// Mode 当前模式
func (f *MaterialForm) Mode() Mode { return f.mode }

// RecordID 编辑中的记录id，新建模式为0
func (f *MaterialForm) RecordID() int64 { return f.recordID }

// EnterCreateMode 切换到新建模式并清空全部字段
func (f *MaterialForm) EnterCreateMode() {
	f.mode = ModeCreate
	f.recordID = 0
	f.Code, f.Name, f.Supplier, f.Unit = "", "", "", ""
	f.LotNumber, f.WeightInput = "", ""
	f.locked = make(map[string]bool)
	f.originalExtras = nil
}

// EnterEditMode 用已有记录填充表单
// 定义之外的attributes原样保留，编辑不会丢失自定义键。
func (f *MaterialForm) EnterEditMode(ctx context.Context, record entity.MaterialRecord) {
	f.mode = ModeEdit
	f.recordID = record.ID
	f.Code = record.MaterialCode
	f.Name = record.MaterialName
	f.Supplier = record.Supplier
	f.Unit = record.Unit
	f.LotNumber = record.LotNumber
	f.WeightInput = strconv.FormatFloat(record.Weight, 'f', -1, 64)
	f.originalExtras = record.Attributes
	f.locked = make(map[string]bool)
	f.ApplyDefinition(ctx)
}

// ApplyDefinition 按当前编码套用物料定义
// 命中定义时填充并锁定名称/供应商/单位，未命中时解除锁定保持自由录入。
func (f *MaterialForm) ApplyDefinition(ctx context.Context) {
	f.registry.LoadForSegment(ctx, f.segment)
	def, ok := f.registry.MaterialByCode(f.segment, strings.TrimSpace(f.Code))
	if !ok {
		f.locked = make(map[string]bool)
		return
	}
	f.Name = def.Name
	f.Supplier = def.Supplier
	f.Unit = def.Unit
	f.locked = map[string]bool{"name": true, "supplier": true, "unit": true}
}

// Locked 字段是否被定义锁定为只读
func (f *MaterialForm) Locked(field string) bool {
	return f.locked[field]
}

// DefinitionInfo 当前编码命中目录时的提示文案（库存、备注），未命中返回空串
func (f *MaterialForm) DefinitionInfo() string {
	def, ok := f.registry.MaterialByCode(f.segment, strings.TrimSpace(f.Code))
	if !ok {
		return ""
	}
	var parts []string
	if def.Stock != nil {
		parts = append(parts, "库存 "+strconv.FormatFloat(*def.Stock, 'f', -1, 64)+def.Unit)
	}
	if def.Notes != "" {
		parts = append(parts, def.Notes)
	}
	return strings.Join(parts, "；")
}

// Validate 本地校验
func (f *MaterialForm) Validate() error {
	if strings.TrimSpace(f.Code) == "" {
		return invalid("material_code", "请选择或输入物料编码")
	}
	if strings.TrimSpace(f.Name) == "" {
		return invalid("material_name", "物料名称不能为空")
	}
	if strings.TrimSpace(f.WeightInput) == "" {
		return invalid("weight", "请填写投料重量")
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(f.WeightInput), 64); err != nil {
		return invalid("weight", "投料重量必须是数字")
	}
	return nil
}

// BuildPayload 校验并组装请求体
func (f *MaterialForm) BuildPayload() (api.MaterialPayload, error) {
	if err := f.Validate(); err != nil {
		return api.MaterialPayload{}, err
	}
	weight, _ := strconv.ParseFloat(strings.TrimSpace(f.WeightInput), 64)
	return api.MaterialPayload{
		MaterialCode: strings.TrimSpace(f.Code),
		MaterialName: strings.TrimSpace(f.Name),
		Weight:       weight,
		Unit:         strings.TrimSpace(f.Unit),
		Supplier:     strings.TrimSpace(f.Supplier),
		LotNumber:    strings.TrimSpace(f.LotNumber),
		Extras:       f.originalExtras,
	}, nil
}
