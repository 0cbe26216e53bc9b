package schema

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// fakeFetcher 可编程的数据来源
type fakeFetcher struct {
	mu          sync.Mutex
	definitions map[string]entity.SegmentDefinition
	fieldConfig entity.RecordFieldConfig
	failDefs    bool
	failConfig  bool
	defCalls    int
	configCalls int
}

func (f *fakeFetcher) SegmentDefinition(_ context.Context, segment string) (entity.SegmentDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defCalls++
	if f.failDefs {
		return entity.SegmentDefinition{}, errors.New("定义服务不可用")
	}
	return f.definitions[segment], nil
}

func (f *fakeFetcher) RecordFieldConfig(_ context.Context) (entity.RecordFieldConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configCalls++
	if f.failConfig {
		return entity.RecordFieldConfig{}, errors.New("配置服务不可用")
	}
	return f.fieldConfig, nil
}

func mixDefinition() entity.SegmentDefinition {
	return entity.SegmentDefinition{
		Materials: []entity.MaterialDefinition{
			{Code: "M-001", Name: "树脂", Supplier: "供应商甲", Unit: "kg"},
		},
		Equipment: []entity.EquipmentDefinition{
			{Code: "E-001", Name: "搅拌机", Parameters: []entity.ParameterSpec{
				{Key: "speed", Label: "转速", Type: entity.ParamNumber, Unit: "rpm"},
			}},
		},
		Quality: []entity.QualityDefinition{
			{Item: "粘度", Unit: "mPa·s"},
		},
	}
}

func TestLoadForSegmentCachesResult(t *testing.T) {
	fetcher := &fakeFetcher{definitions: map[string]entity.SegmentDefinition{"混合": mixDefinition()}}
	registry := NewRegistry(fetcher, nil)
	ctx := context.Background()

	def := registry.LoadForSegment(ctx, "混合")
	require.Len(t, def.Materials, 1)

	registry.LoadForSegment(ctx, "混合")
	registry.LoadForSegment(ctx, "混合")
	assert.Equal(t, 1, fetcher.defCalls, "命中缓存不再发请求")
}

func TestLoadForSegmentEmptyInput(t *testing.T) {
	fetcher := &fakeFetcher{}
	registry := NewRegistry(fetcher, nil)

	def := registry.LoadForSegment(context.Background(), "")
	assert.True(t, def.Empty())
	assert.Zero(t, fetcher.defCalls, "空工段直接回空定义")
}

func TestLoadForSegmentFallbackOnError(t *testing.T) {
	fetcher := &fakeFetcher{failDefs: true}
	registry := NewRegistry(fetcher, nil)
	ctx := context.Background()

	def := registry.LoadForSegment(ctx, "混合")
	assert.True(t, def.Empty(), "加载失败降级为空定义而不是报错")

	// 失败不进缓存，恢复后重试成功
	fetcher.mu.Lock()
	fetcher.failDefs = false
	fetcher.definitions = map[string]entity.SegmentDefinition{"混合": mixDefinition()}
	fetcher.mu.Unlock()

	def = registry.LoadForSegment(ctx, "混合")
	assert.Len(t, def.Equipment, 1)
}

func TestLookupMaps(t *testing.T) {
	fetcher := &fakeFetcher{definitions: map[string]entity.SegmentDefinition{"混合": mixDefinition()}}
	registry := NewRegistry(fetcher, nil)
	ctx := context.Background()
	registry.LoadForSegment(ctx, "混合")

	material, ok := registry.MaterialByCode("混合", "M-001")
	require.True(t, ok)
	assert.Equal(t, "树脂", material.Name)

	_, ok = registry.MaterialByCode("混合", "M-999")
	assert.False(t, ok)

	equipment, ok := registry.EquipmentByCode("混合", "E-001")
	require.True(t, ok)
	assert.Equal(t, "搅拌机", equipment.Name)

	quality, ok := registry.QualityByItem("混合", "粘度")
	require.True(t, ok)
	assert.Equal(t, "mPa·s", quality.Unit)
}

func TestInvalidate(t *testing.T) {
	fetcher := &fakeFetcher{definitions: map[string]entity.SegmentDefinition{"混合": mixDefinition()}}
	registry := NewRegistry(fetcher, nil)
	ctx := context.Background()

	registry.LoadForSegment(ctx, "混合")
	registry.Invalidate("混合")
	registry.LoadForSegment(ctx, "混合")
	assert.Equal(t, 2, fetcher.defCalls)
}

func TestFieldConfigLoadedOnce(t *testing.T) {
	fetcher := &fakeFetcher{fieldConfig: entity.RecordFieldConfig{
		BatchStatusOptions: []string{"进行中", "已完成"},
	}}
	registry := NewRegistry(fetcher, nil)
	ctx := context.Background()

	registry.LoadFieldConfig(ctx)
	registry.LoadFieldConfig(ctx)
	assert.Equal(t, 1, fetcher.configCalls)
}

func TestEquipmentStatusOptionsFallback(t *testing.T) {
	fetcher := &fakeFetcher{failConfig: true}
	registry := NewRegistry(fetcher, nil)

	options := registry.EquipmentStatusOptions(context.Background())
	assert.Equal(t, []string{
		entity.EquipmentStatusRunning,
		entity.EquipmentStatusFault,
		entity.EquipmentStatusMaintenance,
	}, options, "配置不可用时回退内置默认")
}

func TestBatchStatusOptionsIncludeCurrent(t *testing.T) {
	registry := NewRegistry(&fakeFetcher{}, nil)
	ctx := context.Background()

	options := registry.BatchStatusOptions(ctx, "进行中")
	assert.Equal(t, entity.DefaultBatchStatusOptions(), options)

	options = registry.BatchStatusOptions(ctx, "返工中")
	assert.Contains(t, options, "返工中", "现值不在默认选项时追加，避免被下拉吞掉")
}

func TestBatchStatusOptionsFromConfig(t *testing.T) {
	fetcher := &fakeFetcher{fieldConfig: entity.RecordFieldConfig{
		BatchStatusOptions: []string{"进行中", "已完成", "返工中"},
	}}
	registry := NewRegistry(fetcher, nil)

	options := registry.BatchStatusOptions(context.Background(), "进行中")
	assert.Equal(t, []string{"进行中", "已完成", "返工中"}, options)
}

func TestBatchStatusOptionsFoldCompletedStatus(t *testing.T) {
	fetcher := &fakeFetcher{fieldConfig: entity.RecordFieldConfig{
		BatchStatusOptions:   []string{"进行中", "暂停"},
		BatchCompletedStatus: "已放行",
	}}
	registry := NewRegistry(fetcher, nil)

	options := registry.BatchStatusOptions(context.Background(), "进行中")
	assert.Equal(t, []string{"进行中", "暂停", "已放行"}, options, "可配置的完成状态补进选项")
}
