// Package schema 负责工段录入定义与字段配置的懒加载与缓存
package schema

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// Fetcher 定义数据来源。由 api.Client 实现，测试中用假服务器替换。
type Fetcher interface {
	SegmentDefinition(ctx context.Context, segment string) (entity.SegmentDefinition, error)
	RecordFieldConfig(ctx context.Context) (entity.RecordFieldConfig, error)
}

// Registry 工段定义注册表。同一工段的并发加载只发出一次请求，
// 加载失败降级为空定义，表单回退到自由录入而不是报错。
type Registry struct {
	fetcher Fetcher
	logger  *zap.Logger

	group singleflight.Group

	mu          sync.RWMutex
	definitions map[string]entity.SegmentDefinition
	fieldConfig *entity.RecordFieldConfig

	materialByCode  map[string]map[string]entity.MaterialDefinition
	equipmentByCode map[string]map[string]entity.EquipmentDefinition
	qualityByItem   map[string]map[string]entity.QualityDefinition
}

// NewRegistry 创建注册表
func NewRegistry(fetcher Fetcher, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		fetcher:         fetcher,
		logger:          logger,
		definitions:     make(map[string]entity.SegmentDefinition),
		materialByCode:  make(map[string]map[string]entity.MaterialDefinition),
		equipmentByCode: make(map[string]map[string]entity.EquipmentDefinition),
		qualityByItem:   make(map[string]map[string]entity.QualityDefinition),
	}
}

// LoadForSegment 加载指定工段的录入定义。工段为空返回空定义；
// 请求失败记录告警并返回空定义，失败结果不进缓存，下次访问会重试。
func (r *Registry) LoadForSegment(ctx context.Context, segment string) entity.SegmentDefinition {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return entity.SegmentDefinition{}
	}

	r.mu.RLock()
	if def, ok := r.definitions[segment]; ok {
		r.mu.RUnlock()
		return def
	}
	r.mu.RUnlock()

	result, err, _ := r.group.Do(segment, func() (interface{}, error) {
		def, err := r.fetcher.SegmentDefinition(ctx, segment)
		if err != nil {
			return entity.SegmentDefinition{}, err
		}
		r.store(segment, def)
		return def, nil
	})
	if err != nil {
		r.logger.Warn("加载工段定义失败，回退为自由录入",
			zap.String("segment", segment), zap.Error(err))
		return entity.SegmentDefinition{}
	}
	return result.(entity.SegmentDefinition)
}

func (r *Registry) store(segment string, def entity.SegmentDefinition) {
	materials := make(map[string]entity.MaterialDefinition, len(def.Materials))
	for _, m := range def.Materials {
		materials[m.Code] = m
	}
	equipment := make(map[string]entity.EquipmentDefinition, len(def.Equipment))
	for _, e := range def.Equipment {
		equipment[e.Code] = e
	}
	quality := make(map[string]entity.QualityDefinition, len(def.Quality))
	for _, q := range def.Quality {
		quality[q.Item] = q
	}

	r.mu.Lock()
	r.definitions[segment] = def
	r.materialByCode[segment] = materials
	r.equipmentByCode[segment] = equipment
	r.qualityByItem[segment] = quality
	r.mu.Unlock()
}

// MaterialByCode 按物料编码查定义
func (r *Registry) MaterialByCode(segment, code string) (entity.MaterialDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.materialByCode[segment][code]
	return def, ok
}

// EquipmentByCode 按设备编码查定义
func (r *Registry) EquipmentByCode(segment, code string) (entity.EquipmentDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.equipmentByCode[segment][code]
	return def, ok
}

// QualityByItem 按检测项查定义
func (r *Registry) QualityByItem(segment, item string) (entity.QualityDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.qualityByItem[segment][item]
	return def, ok
}

// LoadFieldConfig 加载记录字段配置。整个会话只加载一次，
// 失败时返回空配置，选项回退到内置默认值。
func (r *Registry) LoadFieldConfig(ctx context.Context) entity.RecordFieldConfig {
	r.mu.RLock()
	if r.fieldConfig != nil {
		cfg := *r.fieldConfig
		r.mu.RUnlock()
		return cfg
	}
	r.mu.RUnlock()

	result, err, _ := r.group.Do("record-field-config", func() (interface{}, error) {
		cfg, err := r.fetcher.RecordFieldConfig(ctx)
		if err != nil {
			return entity.RecordFieldConfig{}, err
		}
		r.mu.Lock()
		r.fieldConfig = &cfg
		r.mu.Unlock()
		return cfg, nil
	})
	if err != nil {
		r.logger.Warn("加载字段配置失败，使用内置默认选项", zap.Error(err))
		return entity.RecordFieldConfig{}
	}
	return result.(entity.RecordFieldConfig)
}

// EquipmentStatusOptions 设备状态下拉选项，配置缺失时用内置默认
func (r *Registry) EquipmentStatusOptions(ctx context.Context) []string {
	cfg := r.LoadFieldConfig(ctx)
	if options := cfg.EquipmentStatusOptions(); len(options) > 0 {
		return options
	}
	return []string{
		entity.EquipmentStatusRunning,
		entity.EquipmentStatusFault,
		entity.EquipmentStatusMaintenance,
	}
}

// BatchStatusOptions 批号状态选项。优先使用字段配置下发的选项，
// 可配置的完成状态与 current 缺失时补进列表，以免现值被下拉吞掉。
func (r *Registry) BatchStatusOptions(ctx context.Context, current string) []string {
	cfg := r.LoadFieldConfig(ctx)
	options := entity.DefaultBatchStatusOptions()
	if len(cfg.BatchStatusOptions) > 0 {
		options = append([]string(nil), cfg.BatchStatusOptions...)
	}
	for _, extra := range []string{cfg.BatchCompletedStatus, current} {
		if extra == "" {
			continue
		}
		found := false
		for _, option := range options {
			if option == extra {
				found = true
				break
			}
		}
		if !found {
			options = append(options, extra)
		}
	}
	return options
}

// Invalidate 清空指定工段的缓存，定义在服务端变更后调用
func (r *Registry) Invalidate(segment string) {
	r.mu.Lock()
	delete(r.definitions, segment)
	delete(r.materialByCode, segment)
	delete(r.equipmentByCode, segment)
	delete(r.qualityByItem, segment)
	r.mu.Unlock()
}
