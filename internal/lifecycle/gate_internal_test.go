package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/xieshentoken/miniMES/internal/api"
	"github.com/xieshentoken/miniMES/internal/entity"
	"github.com/xieshentoken/miniMES/internal/permission"
	"github.com/xieshentoken/miniMES/internal/schema"
	"github.com/xieshentoken/miniMES/internal/testutil"
)

// 删除与新增、更新共用同一提交键，提交进行中时删除同样要排队
func TestRemoveRecordsShareSubmitGate(t *testing.T) {
	env := testutil.NewEnv(t)
	client := api.NewClient(env.BaseURL(), 0, nil)
	registry := schema.NewRegistry(client, nil)
	svc := NewService(client, registry, permission.RoleAdmin, nil)
	ctx := context.Background()

	id := env.Store.SeedBatch("B-100", "外壳A", "混合", "进行中")
	if _, err := svc.RefreshBatches(ctx); err != nil {
		t.Fatalf("刷新批号列表失败: %v", err)
	}
	if err := svc.SelectBatch(id); err != nil {
		t.Fatalf("选中批号失败: %v", err)
	}

	material, err := svc.CreateMaterial(ctx, api.MaterialPayload{
		MaterialCode: "M-001", MaterialName: "树脂", Weight: 12.5, Unit: "kg",
	})
	if err != nil {
		t.Fatalf("新增物料失败: %v", err)
	}
	equipment, err := svc.CreateEquipment(ctx, api.EquipmentPayload{
		EquipmentCode: "E-001", EquipmentName: "注塑机",
		StartTime: "2026-08-30 08:00", Status: entity.EquipmentStatusRunning,
	}, nil, nil)
	if err != nil {
		t.Fatalf("新增设备失败: %v", err)
	}
	quality, err := svc.CreateQuality(ctx, api.QualityPayload{TestItem: "粘度"}, nil, nil)
	if err != nil {
		t.Fatalf("新增质检失败: %v", err)
	}

	cases := []struct {
		key    string
		remove func() error
	}{
		{"material_submit", func() error { return svc.RemoveMaterial(ctx, material.ID) }},
		{"equipment_submit", func() error { return svc.RemoveEquipment(ctx, equipment.ID) }},
		{"quality_submit", func() error { return svc.RemoveQuality(ctx, quality.ID) }},
	}
	for _, tc := range cases {
		if err := svc.gate.Acquire(tc.key); err != nil {
			t.Fatalf("占用%s失败: %v", tc.key, err)
		}
		if err := tc.remove(); !errors.Is(err, ErrBusy) {
			t.Fatalf("%s占用期间删除应返回ErrBusy，实际: %v", tc.key, err)
		}
		svc.gate.Release(tc.key)
		if err := tc.remove(); err != nil {
			t.Fatalf("释放%s后删除失败: %v", tc.key, err)
		}
	}
}
