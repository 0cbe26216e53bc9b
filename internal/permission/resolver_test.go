package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAdmin(t *testing.T) {
	set := Resolve(RoleAdmin)
	assert.True(t, set.ViewMaterials)
	assert.True(t, set.ManageMaterials)
	assert.True(t, set.ViewEquipment)
	assert.True(t, set.ManageEquipment)
	assert.True(t, set.ViewQuality)
	assert.True(t, set.ManageQuality)
	assert.True(t, set.ManageBatchStatus)
	assert.True(t, set.ManageBatchSegment)
	assert.True(t, set.CreateBatch)
	assert.True(t, set.DuplicateBatch)
}

func TestResolveRead(t *testing.T) {
	set := Resolve(RoleRead)
	assert.True(t, set.ViewMaterials)
	assert.True(t, set.ViewEquipment)
	assert.True(t, set.ViewQuality)
	assert.False(t, set.ManageMaterials)
	assert.False(t, set.ManageEquipment)
	assert.False(t, set.ManageQuality)
	assert.False(t, set.CreateBatch)
	assert.False(t, set.DuplicateBatch)
}

func TestResolveWriteMaterial(t *testing.T) {
	set := Resolve(RoleWriteMaterial)
	assert.True(t, set.ManageMaterials)
	assert.True(t, set.ManageEquipment)
	assert.True(t, set.ViewQuality)
	assert.False(t, set.ManageQuality, "物料录入角色不能管理质检记录")
	assert.False(t, set.DuplicateBatch)
}

func TestResolveWriteQuality(t *testing.T) {
	set := Resolve(RoleWriteQuality)
	assert.True(t, set.ManageQuality)
	assert.False(t, set.ManageMaterials, "品质录入角色不能管理物料记录")
	assert.False(t, set.ManageEquipment)
	assert.False(t, set.DuplicateBatch)
}

func TestResolveWrite(t *testing.T) {
	set := Resolve(RoleWrite)
	assert.True(t, set.ManageMaterials)
	assert.True(t, set.ManageEquipment)
	assert.True(t, set.ManageQuality)
	assert.True(t, set.DuplicateBatch)
}

func TestResolveUnknownRole(t *testing.T) {
	set := Resolve("operator_x")
	assert.True(t, set.ViewQuality, "未知角色保留只读的质检查看")
	assert.False(t, set.ViewMaterials)
	assert.False(t, set.ManageMaterials)
	assert.False(t, set.CreateBatch)
	assert.False(t, set.DuplicateBatch)
}

func TestNormalizeDisplayLabels(t *testing.T) {
	assert.Equal(t, RoleAdmin, Normalize("管理员"))
	assert.Equal(t, RoleRead, Normalize("只读用户"))
	assert.Equal(t, RoleWriteMaterial, Normalize("物料/设备录入"))
	assert.Equal(t, RoleWriteQuality, Normalize("品质录入"))
	assert.Equal(t, RoleWrite, Normalize("  write "))
	assert.Equal(t, RoleAdmin, Normalize("ADMIN"))
}

func TestCanBulkDelete(t *testing.T) {
	assert.True(t, CanBulkDelete(RoleAdmin))
	assert.False(t, CanBulkDelete(RoleWrite), "批量删除仅限管理员")
	assert.False(t, CanBulkDelete(RoleRead))
	assert.False(t, CanBulkDelete("unknown"))
}

func TestDeniedError(t *testing.T) {
	err := Denied(RoleRead, "新增物料记录")
	assert.Contains(t, err.Error(), "新增物料记录")
	assert.Contains(t, err.Error(), DisplayName(RoleRead))
}
