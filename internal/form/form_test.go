package form

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieshentoken/miniMES/internal/entity"
	"github.com/xieshentoken/miniMES/internal/schema"
)

// stubFetcher 固定返回预置定义
type stubFetcher struct {
	definitions map[string]entity.SegmentDefinition
	fieldConfig entity.RecordFieldConfig
	fail        bool
}

func (f *stubFetcher) SegmentDefinition(_ context.Context, segment string) (entity.SegmentDefinition, error) {
	if f.fail {
		return entity.SegmentDefinition{}, errors.New("定义服务不可用")
	}
	return f.definitions[segment], nil
}

func (f *stubFetcher) RecordFieldConfig(_ context.Context) (entity.RecordFieldConfig, error) {
	return f.fieldConfig, nil
}

func newTestRegistry(defs map[string]entity.SegmentDefinition) *schema.Registry {
	return schema.NewRegistry(&stubFetcher{definitions: defs}, nil)
}

func moldingDefinition() entity.SegmentDefinition {
	minViscosity, maxViscosity := 10.0, 20.0
	stock := 120.0
	return entity.SegmentDefinition{
		Materials: []entity.MaterialDefinition{
			{Code: "M-001", Name: "树脂", Supplier: "供应商甲", Unit: "kg", Stock: &stock, Notes: "避光保存"},
		},
		Equipment: []entity.EquipmentDefinition{
			{Code: "E-001", Name: "注塑机", Parameters: []entity.ParameterSpec{
				{Key: "temperature", Label: "模温", Type: entity.ParamNumber, Unit: "℃", Required: true},
				{Key: "preheated", Label: "是否预热", Type: entity.ParamBoolean},
				{Key: "mode", Label: "模式", Type: entity.ParamSelect, Options: []string{"自动", "手动"}, Default: "自动"},
			}},
		},
		Quality: []entity.QualityDefinition{
			{Item: "粘度", Unit: "mPa·s", Min: &minViscosity, Max: &maxViscosity, Device: "粘度计", StandardValue: 15.0, Notes: "取样后5分钟内测定"},
		},
	}
}

// =============================================================================
// 控件合成与类型转换
// =============================================================================

func TestBuildWidgetsAppliesDefaults(t *testing.T) {
	specs := moldingDefinition().Equipment[0].Parameters
	widgets := BuildWidgets(specs, nil)
	require.Len(t, widgets, 3)
	assert.Equal(t, "", widgets[0].Value, "必填数字无默认值保持为空")
	assert.Equal(t, "", widgets[1].Value)
	assert.Equal(t, "自动", widgets[2].Value, "默认值在无已有值时生效")
}

func TestBuildWidgetsPrefersPriorValues(t *testing.T) {
	specs := moldingDefinition().Equipment[0].Parameters
	widgets := BuildWidgets(specs, map[string]interface{}{
		"temperature": "85.5",
		"preheated":   "true",
		"mode":        "手动",
	})
	assert.Equal(t, "85.5", widgets[0].Value)
	assert.Equal(t, "是", widgets[1].Value, "线上布尔字符串渲染为三态文本")
	assert.Equal(t, "手动", widgets[2].Value)
}

func TestBuildWidgetsLegacyBoolValue(t *testing.T) {
	specs := moldingDefinition().Equipment[0].Parameters
	widgets := BuildWidgets(specs, map[string]interface{}{
		"temperature": 85.5,
		"preheated":   true,
	})
	assert.Equal(t, "85.5", widgets[0].Value)
	assert.Equal(t, "是", widgets[1].Value, "历史记录里的原生布尔同样可渲染")
}

func TestMergeParametersPreservesUnknownKeys(t *testing.T) {
	specs := moldingDefinition().Equipment[0].Parameters
	original := map[string]interface{}{
		"temperature": "80",
		"custom_note": "老设备手动记录", // 定义之外的自定义键
	}
	widgets := BuildWidgets(specs, original)
	widgets[0].Value = "90"

	merged, err := mergeParameters(original, widgets)
	require.NoError(t, err)
	assert.Equal(t, "90", merged["temperature"])
	assert.Equal(t, "老设备手动记录", merged["custom_note"], "编辑不丢失自定义键")
}

func TestMergeParametersSubmitsStrings(t *testing.T) {
	specs := moldingDefinition().Equipment[0].Parameters
	widgets := BuildWidgets(specs, nil)
	widgets[0].Value = "85.5"
	widgets[1].Value = "是"

	merged, err := mergeParameters(nil, widgets)
	require.NoError(t, err)

	data, err := json.Marshal(merged)
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature":"85.5","preheated":"true","mode":"自动"}`, string(data),
		"数字和布尔参数上送时保持字符串类型")
}

func TestMergeParametersValidation(t *testing.T) {
	specs := moldingDefinition().Equipment[0].Parameters
	widgets := BuildWidgets(specs, nil)

	_, err := mergeParameters(nil, widgets)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "必填参数为空")
	assert.Equal(t, "temperature", verr.Field)

	widgets[0].Value = "很烫"
	_, err = mergeParameters(nil, widgets)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "数字")
}

// =============================================================================
// 物料表单
// =============================================================================

func TestMaterialFormDefinitionLocksFields(t *testing.T) {
	registry := newTestRegistry(map[string]entity.SegmentDefinition{"成型": moldingDefinition()})
	f := NewMaterialForm(registry, "成型")
	ctx := context.Background()

	f.Code = "M-001"
	f.ApplyDefinition(ctx)
	assert.Equal(t, "树脂", f.Name)
	assert.Equal(t, "供应商甲", f.Supplier)
	assert.True(t, f.Locked("name"))
	assert.True(t, f.Locked("unit"))

	// 目录外编码解除锁定，保持自由录入
	f.Code = "EXT-999"
	f.ApplyDefinition(ctx)
	assert.False(t, f.Locked("name"))
}

func TestMaterialFormValidation(t *testing.T) {
	registry := newTestRegistry(nil)
	f := NewMaterialForm(registry, "成型")

	err := f.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "material_code", verr.Field)

	f.Code = "M-001"
	f.Name = "树脂"
	f.WeightInput = "十公斤"
	require.ErrorAs(t, f.Validate(), &verr)
	assert.Equal(t, "weight", verr.Field)

	f.WeightInput = "10.5"
	assert.NoError(t, f.Validate())
}

func TestMaterialFormEditPreservesExtras(t *testing.T) {
	registry := newTestRegistry(nil)
	f := NewMaterialForm(registry, "成型")
	ctx := context.Background()

	f.EnterEditMode(ctx, entity.MaterialRecord{
		ID:           11,
		MaterialCode: "EXT-1",
		MaterialName: "外购粉料",
		Weight:       3.2,
		Attributes:   map[string]any{"warehouse": "B区"},
	})
	require.Equal(t, ModeEdit, f.Mode())
	assert.Equal(t, int64(11), f.RecordID())

	payload, err := f.BuildPayload()
	require.NoError(t, err)
	assert.Equal(t, 3.2, payload.Weight)
	assert.Equal(t, map[string]interface{}{"warehouse": "B区"}, payload.Extras)

	// 提交成功后回到新建模式，字段清空
	f.EnterCreateMode()
	assert.Equal(t, ModeCreate, f.Mode())
	assert.Zero(t, f.RecordID())
	assert.Empty(t, f.Code)
	assert.Empty(t, f.WeightInput)
}

// =============================================================================
// 设备表单
// =============================================================================

func TestEquipmentFormCreateDefaults(t *testing.T) {
	registry := newTestRegistry(map[string]entity.SegmentDefinition{"成型": moldingDefinition()})
	f := NewEquipmentForm(context.Background(), registry, "成型")

	assert.Equal(t, ModeCreate, f.Mode())
	assert.Equal(t, entity.EquipmentStatusRunning, f.Status, "状态默认取第一个选项")
	assert.Empty(t, f.KeepAttachments())
}

func TestEquipmentFormAttachmentReconciliation(t *testing.T) {
	registry := newTestRegistry(map[string]entity.SegmentDefinition{"成型": moldingDefinition()})
	ctx := context.Background()
	f := NewEquipmentForm(ctx, registry, "成型")

	f.EnterEditMode(ctx, entity.EquipmentRecord{
		ID:            21,
		EquipmentCode: "E-001",
		EquipmentName: "注塑机",
		StartTime:     "2026-08-30 08:00",
		Status:        entity.EquipmentStatusRunning,
		Parameters:    map[string]any{"temperature": "85"},
		Attachments: []entity.Attachment{
			{Name: "a.jpg", Path: "/uploads/a.jpg"},
			{Name: "b.jpg", Path: "/uploads/b.jpg"},
			{Name: "c.jpg", Path: "/uploads/c.jpg"},
		},
	})
	require.Equal(t, []string{"/uploads/a.jpg", "/uploads/b.jpg", "/uploads/c.jpg"}, f.KeepAttachments())

	// 删一个旧附件、加一个新文件
	f.RemoveAttachment("/uploads/b.jpg")
	f.AddFile("d.jpg", []byte("new-file"))

	payload, keep, files, err := f.BuildPayload()
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/a.jpg", "/uploads/c.jpg"}, keep)
	require.Len(t, files, 1)
	assert.Equal(t, "d.jpg", files[0].Filename)
	assert.Equal(t, "85", payload.Parameters["temperature"])
}

func TestEquipmentFormValidation(t *testing.T) {
	registry := newTestRegistry(nil)
	f := NewEquipmentForm(context.Background(), registry, "成型")

	var verr *ValidationError
	require.ErrorAs(t, f.Validate(), &verr)
	assert.Equal(t, "equipment_code", verr.Field)

	f.Code = "E-100"
	f.Name = "外协设备"
	require.ErrorAs(t, f.Validate(), &verr)
	assert.Equal(t, "start_time", verr.Field)

	f.StartTime = "2026-08-30 08:00"
	assert.NoError(t, f.Validate())
}

func TestEquipmentFormBooleanWidget(t *testing.T) {
	registry := newTestRegistry(map[string]entity.SegmentDefinition{"成型": moldingDefinition()})
	ctx := context.Background()
	f := NewEquipmentForm(ctx, registry, "成型")
	f.Code = "E-001"
	f.ApplyDefinition(ctx)
	f.StartTime = "2026-08-30 08:00"
	f.SetParameter("temperature", "88")
	f.SetParameter("preheated", "否")

	payload, _, _, err := f.BuildPayload()
	require.NoError(t, err)
	assert.Equal(t, "false", payload.Parameters["preheated"])
	assert.Equal(t, "自动", payload.Parameters["mode"], "select默认值随提交带出")
}

// =============================================================================
// 质检表单
// =============================================================================

func TestQualityFormDefinitionAndPreview(t *testing.T) {
	registry := newTestRegistry(map[string]entity.SegmentDefinition{"成型": moldingDefinition()})
	ctx := context.Background()
	f := NewQualityForm(registry, "成型")

	f.Item = "粘度"
	f.ApplyDefinition(ctx)
	assert.Equal(t, "mPa·s", f.Unit)
	assert.Equal(t, "10", f.MinInput)
	assert.Equal(t, "20", f.MaxInput)
	assert.Equal(t, "粘度计", f.Device)
	assert.True(t, f.Locked("standard_min"))

	f.ValueInput = "15"
	assert.Equal(t, entity.QualityResultPass, f.PreviewResult())
	f.ValueInput = "25"
	assert.Equal(t, entity.QualityResultFail, f.PreviewResult())
	f.ValueInput = ""
	assert.Equal(t, entity.QualityResultPending, f.PreviewResult(), "检测值缺失判待定")
}

func TestQualityFormValidation(t *testing.T) {
	registry := newTestRegistry(nil)
	f := NewQualityForm(registry, "成型")

	var verr *ValidationError
	require.ErrorAs(t, f.Validate(), &verr)
	assert.Equal(t, "test_item", verr.Field)

	f.Item = "粘度"
	f.ValueInput = "偏高"
	require.ErrorAs(t, f.Validate(), &verr)
	assert.Equal(t, "test_value", verr.Field)
}

func TestQualityFormPayloadCarriesResult(t *testing.T) {
	registry := newTestRegistry(map[string]entity.SegmentDefinition{"成型": moldingDefinition()})
	ctx := context.Background()
	f := NewQualityForm(registry, "成型")
	f.Item = "粘度"
	f.ApplyDefinition(ctx)
	f.ValueInput = "12.5"

	payload, keep, files, err := f.BuildPayload()
	require.NoError(t, err)
	require.NotNil(t, payload.TestValue)
	assert.Equal(t, 12.5, *payload.TestValue)
	assert.Equal(t, entity.QualityResultPass, payload.Result)
	assert.Empty(t, keep, "新建模式保留列表为空数组")
	assert.Empty(t, files)
}

func TestDefinitionInfoText(t *testing.T) {
	registry := newTestRegistry(map[string]entity.SegmentDefinition{"成型": moldingDefinition()})
	ctx := context.Background()

	mf := NewMaterialForm(registry, "成型")
	mf.Code = "M-001"
	mf.ApplyDefinition(ctx)
	assert.Equal(t, "库存 120kg；避光保存", mf.DefinitionInfo())

	mf.Code = "M-999"
	mf.ApplyDefinition(ctx)
	assert.Empty(t, mf.DefinitionInfo(), "目录外编码没有提示文案")

	qf := NewQualityForm(registry, "成型")
	qf.Item = "粘度"
	qf.ApplyDefinition(ctx)
	assert.Equal(t, "标准值 15mPa·s；取样后5分钟内测定", qf.DefinitionInfo())
}
