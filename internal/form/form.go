// Package form 动态录入表单的状态机与校验
// 每类记录（物料/设备/质检）各一个控制器，在新建与编辑两种模式之间切换，
// 按工段定义合成输入控件，提交前本地校验并组装请求体。
package form

import "fmt"

// Mode 表单模式
type Mode int

const (
	// ModeCreate 新建模式：字段清空、附件列表为空、recordID为0
	ModeCreate Mode = iota
	// ModeEdit 编辑模式：字段来自已有记录，原始扩展字段与附件路径被保留
	ModeEdit
)

// ValidationError 本地校验错误。校验失败阻止提交，不发起网络请求
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
