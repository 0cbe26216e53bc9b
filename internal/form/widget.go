package form

import (
	"strconv"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// 布尔参数的三态展示值
const (
	boolUnset = ""
	boolTrue  = "是"
	boolFalse = "否"
)

// Widget 由参数定义合成的输入控件
// Value保存原始输入文本，提交时按定义类型校验后以字符串上送
type Widget struct {
	Spec  entity.ParameterSpec
	Value string
}

// BuildWidgets 按参数定义合成控件列表
// prior为已有记录的参数值（编辑模式），没有已有值时应用定义的默认值
func BuildWidgets(specs []entity.ParameterSpec, prior map[string]interface{}) []Widget {
	widgets := make([]Widget, 0, len(specs))
	for _, spec := range specs {
		value := ""
		if prior != nil {
			if raw, ok := prior[spec.Key]; ok {
				value = displayValue(spec, raw)
			}
		}
		if value == "" && spec.Default != nil {
			value = displayValue(spec, spec.Default)
		}
		widgets = append(widgets, Widget{Spec: spec, Value: value})
	}
	return widgets
}

// displayValue 把已有参数值渲染为输入文本
// 布尔参数在线上以 "true"/"false" 字符串存储，展示时换回三态文本。
func displayValue(spec entity.ParameterSpec, raw interface{}) string {
	text := formatValue(raw)
	if spec.Type == entity.ParamBoolean {
		switch text {
		case "true":
			return boolTrue
		case "false":
			return boolFalse
		}
	}
	return text
}

// formatValue 把参数值渲染为输入文本
func formatValue(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return boolTrue
		}
		return boolFalse
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// convert 按定义类型校验输入文本
// 返回值为 (参数值, 是否写入, 错误)。空输入的非必填参数不写入。
// 参数值一律以字符串上送，数字和布尔也不例外。
func (w Widget) convert() (interface{}, bool, error) {
	value := w.Value
	if value == "" {
		if w.Spec.Required {
			return nil, false, invalid(w.Spec.Key, "参数「%s」为必填项", w.Spec.Label)
		}
		return nil, false, nil
	}

	switch w.Spec.Type {
	case entity.ParamNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return nil, false, invalid(w.Spec.Key, "参数「%s」必须是数字", w.Spec.Label)
		}
		return value, true, nil
	case entity.ParamBoolean:
		switch value {
		case boolTrue:
			return "true", true, nil
		case boolFalse:
			return "false", true, nil
		default:
			return nil, false, invalid(w.Spec.Key, "参数「%s」只能选择是或否", w.Spec.Label)
		}
	default:
		// datetime、select、text统一按文本透传
		return value, true, nil
	}
}

// mergeParameters 组装最终参数集
// 以original为底保留定义之外的自定义键，控件值覆盖定义内的键。
func mergeParameters(original map[string]interface{}, widgets []Widget) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(original)+len(widgets))
	for key, value := range original {
		merged[key] = value
	}
	for _, widget := range widgets {
		value, ok, err := widget.convert()
		if err != nil {
			return nil, err
		}
		if ok {
			merged[widget.Spec.Key] = value
		} else {
			// 必填校验已通过，空输入表示显式清除该键
			delete(merged, widget.Spec.Key)
		}
	}
	return merged, nil
}
