package lifecycle

import (
	"errors"
	"fmt"
)

// ErrBusy 同一操作尚未结束时的重复触发
var ErrBusy = errors.New("上一次操作尚未完成，请稍候")

// ErrStaleResponse 响应到达时用户已切换批号，结果被丢弃
var ErrStaleResponse = errors.New("已切换批号，结果已丢弃")

// ErrConfirmationRequired 状态或工段变更需要用户确认后执行
var ErrConfirmationRequired = errors.New("该操作需要确认后执行")

// NotFoundError 本地缓存中找不到目标对象
// 通常是刷新后记录已被他人删除，提示用户重新加载。
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s不存在或已被删除（id=%d），请刷新后重试", e.Kind, e.ID)
}

// DuplicateNumberError 复制目标批号与已有批号重名
// 工段仍可区分，重名是允许的，但需要用户二次确认。
type DuplicateNumberError struct {
	BatchNumber string
}

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("批号 %s 已存在，确认后将以工段区分保存", e.BatchNumber)
}
