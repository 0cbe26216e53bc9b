// Package permission 将会话角色解析为批号/记录操作的能力集合。
// 角色与能力的映射是静态表，服务端在每个接口上做最终校验，
// 客户端用解析结果提前拦截无权限操作，避免无效请求。
package permission

import (
	"fmt"
	"strings"
)

// 角色标识
const (
	RoleAdmin         = "admin"
	RoleRead          = "read"
	RoleWrite         = "write"
	RoleWriteMaterial = "write_material"
	RoleWriteQuality  = "write_quality"
)

// roleDisplayNames 角色的本地化显示名称
var roleDisplayNames = map[string]string{
	RoleAdmin:         "管理员",
	RoleRead:          "只读用户",
	RoleWrite:         "只写用户",
	RoleWriteMaterial: "物料/设备录入",
	RoleWriteQuality:  "品质录入",
}

var displayToRole = func() map[string]string {
	m := make(map[string]string, len(roleDisplayNames))
	for role, display := range roleDisplayNames {
		m[display] = role
	}
	return m
}()

// Set 按角色派生的能力集合，不做持久化
type Set struct {
	ViewMaterials      bool `json:"viewMaterials"`
	ManageMaterials    bool `json:"manageMaterials"`
	ViewEquipment      bool `json:"viewEquipment"`
	ManageEquipment    bool `json:"manageEquipment"`
	ViewQuality        bool `json:"viewQuality"`
	ManageQuality      bool `json:"manageQuality"`
	ManageBatchStatus  bool `json:"manageBatchStatus"`
	ManageBatchSegment bool `json:"manageBatchSegment"`
	CreateBatch        bool `json:"createBatch"`
	DuplicateBatch     bool `json:"duplicateBatch"`
}

// 角色能力表。write_material 负责物料与设备维护，品质仅限查看之外完全不可见；
// write_quality 与之互补；批量删除不在能力表内，始终仅限 admin。
var (
	materialViewRoles   = roleSet(RoleAdmin, RoleWrite, RoleWriteMaterial, RoleRead)
	materialManageRoles = roleSet(RoleAdmin, RoleWrite, RoleWriteMaterial)
	equipmentViewRoles  = roleSet(RoleAdmin, RoleWrite, RoleWriteMaterial, RoleRead)
	equipmentManage     = roleSet(RoleAdmin, RoleWrite, RoleWriteMaterial)
	qualityViewRoles    = roleSet(RoleAdmin, RoleWrite, RoleWriteQuality, RoleRead)
	qualityManageRoles  = roleSet(RoleAdmin, RoleWrite, RoleWriteQuality)
	batchStatusRoles    = roleSet(RoleAdmin, RoleWrite, RoleWriteMaterial)
	batchSegmentRoles   = roleSet(RoleAdmin, RoleWrite, RoleWriteMaterial)
	createBatchRoles    = roleSet(RoleAdmin, RoleWrite, RoleWriteMaterial)
	duplicateBatchRoles = roleSet(RoleAdmin, RoleWrite)
)

func roleSet(roles ...string) map[string]bool {
	m := make(map[string]bool, len(roles))
	for _, role := range roles {
		m[role] = true
	}
	return m
}

// Normalize 将原始角色键或本地化显示名称归一为角色标识。
// 未识别的输入原样返回，由能力表兜底为只读默认值。
func Normalize(role string) string {
	trimmed := strings.TrimSpace(role)
	if normalized, ok := displayToRole[trimmed]; ok {
		return normalized
	}
	return strings.ToLower(trimmed)
}

// DisplayName 角色的本地化显示名称，未知角色原样返回
func DisplayName(role string) string {
	if display, ok := roleDisplayNames[role]; ok {
		return display
	}
	return role
}

// knownRoles 能力表覆盖的角色
var knownRoles = roleSet(RoleAdmin, RoleRead, RoleWrite, RoleWriteMaterial, RoleWriteQuality)

// Resolve 解析角色的能力集合。未知角色按只读兜底处理：
// 仅保留品质查看，其余能力全部为否。
func Resolve(role string) Set {
	normalized := Normalize(role)
	if !knownRoles[normalized] {
		return Set{ViewQuality: true}
	}
	return Set{
		ViewMaterials:      materialViewRoles[normalized],
		ManageMaterials:    materialManageRoles[normalized],
		ViewEquipment:      equipmentViewRoles[normalized],
		ManageEquipment:    equipmentManage[normalized],
		ViewQuality:        qualityViewRoles[normalized],
		ManageQuality:      qualityManageRoles[normalized],
		ManageBatchStatus:  batchStatusRoles[normalized],
		ManageBatchSegment: batchSegmentRoles[normalized],
		CreateBatch:        createBatchRoles[normalized],
		DuplicateBatch:     duplicateBatchRoles[normalized],
	}
}

// CanBulkDelete 批量删除不设细分能力位，仅限管理员
func CanBulkDelete(role string) bool {
	return Normalize(role) == RoleAdmin
}

// Error 权限不足错误。动作在本地被拦截，不会发起网络请求。
type Error struct {
	Role   string
	Action string
}

func (e *Error) Error() string {
	return fmt.Sprintf("当前角色（%s）无权限执行该操作: %s", DisplayName(e.Role), e.Action)
}

// Denied 构造权限错误
func Denied(role, action string) *Error {
	return &Error{Role: role, Action: action}
}
