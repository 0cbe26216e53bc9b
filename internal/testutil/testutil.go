// Package testutil 测试支撑：内存版批号追踪服务端
// 用gin实现与真实服务端相同的路由与包体形状，api与lifecycle的测试都打到这里。
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/xieshentoken/miniMES/internal/entity"
)

// ForcedError 注入的错误响应，命中一次后清除
type ForcedError struct {
	Status  int
	Message string
}

// Store 内存数据。行的粒度与数据库一致：每个工段一行
type Store struct {
	mu sync.Mutex

	nextID int64
	rows   map[int64]*entity.Batch

	materials map[int64][]entity.MaterialRecord
	equipment map[int64][]entity.EquipmentRecord
	quality   map[int64][]entity.QualityRecord

	Segments    []entity.ProcessSegment
	Definitions map[string]entity.SegmentDefinition
	FieldConfig entity.RecordFieldConfig

	// FailSegmentDefs 让定义接口返回500，验证空定义降级
	FailSegmentDefs bool

	// BeforeMaterialList 在物料列表返回前调用，便于在请求途中插入并发操作
	BeforeMaterialList func()

	forced *ForcedError
}

// NewStore 创建空数据集
func NewStore() *Store {
	return &Store{
		nextID:      1,
		rows:        make(map[int64]*entity.Batch),
		materials:   make(map[int64][]entity.MaterialRecord),
		equipment:   make(map[int64][]entity.EquipmentRecord),
		quality:     make(map[int64][]entity.QualityRecord),
		Definitions: make(map[string]entity.SegmentDefinition),
	}
}

// ForceError 注入一次性错误响应
func (s *Store) ForceError(status int, message string) {
	s.mu.Lock()
	s.forced = &ForcedError{Status: status, Message: message}
	s.mu.Unlock()
}

func (s *Store) takeForced() *ForcedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	forced := s.forced
	s.forced = nil
	return forced
}

// SeedBatch 造一行批号数据，返回行id
func (s *Store) SeedBatch(batchNumber, productName, segment, status string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.rows[id] = &entity.Batch{
		ID:             id,
		BatchNumber:    batchNumber,
		ProductName:    productName,
		ProcessSegment: segment,
		Status:         status,
	}
	return id
}

// SeedMaterial 造一条物料记录
func (s *Store) SeedMaterial(batchID int64, record entity.MaterialRecord) entity.MaterialRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = s.nextID
	s.nextID++
	record.BatchID = batchID
	s.materials[batchID] = append(s.materials[batchID], record)
	return record
}

// SeedEquipment 造一条设备记录
func (s *Store) SeedEquipment(batchID int64, record entity.EquipmentRecord) entity.EquipmentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = s.nextID
	s.nextID++
	record.BatchID = batchID
	s.equipment[batchID] = append(s.equipment[batchID], record)
	return record
}

// SeedQuality 造一条质检记录
func (s *Store) SeedQuality(batchID int64, record entity.QualityRecord) entity.QualityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = s.nextID
	s.nextID++
	record.BatchID = batchID
	s.quality[batchID] = append(s.quality[batchID], record)
	return record
}

// aggregated 按 (批号, 产品) 聚合，最大id的行代表该批号并携带全部工段汇总
func (s *Store) aggregated() []entity.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := make(map[string][]*entity.Batch)
	var keys []string
	for _, row := range s.rows {
		key := row.BatchNumber + "\x00" + row.ProductName
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], row)
	}
	sort.Strings(keys)

	batches := make([]entity.Batch, 0, len(groups))
	for _, key := range keys {
		rows := groups[key]
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
		latest := rows[len(rows)-1]

		agg := *latest
		if len(rows) > 1 {
			agg.Summaries = make([]entity.SegmentSummary, 0, len(rows))
			for _, row := range rows {
				agg.Summaries = append(agg.Summaries, entity.SegmentSummary{
					BatchID:        row.ID,
					ProcessSegment: row.ProcessSegment,
					Status:         row.Status,
					StartTime:      row.StartTime,
					EndTime:        row.EndTime,
					MaterialCount:  row.MaterialCount,
					EquipmentCount: row.EquipmentCount,
					QualityCount:   row.QualityCount,
				})
			}
		}
		batches = append(batches, agg)
	}
	return batches
}

// TestEnv 测试环境：内存服务端加HTTP监听
type TestEnv struct {
	Server *httptest.Server
	Store  *Store
	T      *testing.T
}

// NewEnv 启动内存服务端，测试结束自动关闭
func NewEnv(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewStore()
	router := gin.New()
	registerRoutes(router, store)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &TestEnv{Server: server, Store: store, T: t}
}

// BaseURL 服务端地址
func (env *TestEnv) BaseURL() string {
	return env.Server.URL
}

func registerRoutes(r *gin.Engine, store *Store) {
	// 一次性错误注入，优先于正常处理
	r.Use(func(c *gin.Context) {
		if forced := store.takeForced(); forced != nil {
			c.AbortWithStatusJSON(forced.Status, gin.H{"error": forced.Message})
			return
		}
		c.Next()
	})

	api := r.Group("/api")
	{
		api.GET("/batches", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.aggregated())
		})

		// 注意顺序：/batches/delete 必须先于 /batches/:id 注册
		api.DELETE("/batches/delete", func(c *gin.Context) {
			var req struct {
				ProductName    string `json:"product_name"`
				BatchNumber    string `json:"batch_number"`
				ProcessSegment string `json:"process_segment"`
				Status         string `json:"status"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
				return
			}
			store.mu.Lock()
			deleted := 0
			for id, row := range store.rows {
				if row.ProductName == req.ProductName &&
					row.BatchNumber == req.BatchNumber &&
					row.ProcessSegment == req.ProcessSegment &&
					row.Status == req.Status {
					delete(store.rows, id)
					deleted++
				}
			}
			store.mu.Unlock()
			c.JSON(http.StatusOK, gin.H{"deleted": deleted})
		})

		api.GET("/batches/:id", func(c *gin.Context) {
			row, ok := store.findRow(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, entity.BatchDetail{Batch: *row})
		})

		api.POST("/batches", func(c *gin.Context) {
			var req struct {
				BatchNumber    string `json:"batch_number"`
				ProductName    string `json:"product_name"`
				ProcessSegment string `json:"process_segment"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
				return
			}
			id := store.SeedBatch(req.BatchNumber, req.ProductName, req.ProcessSegment, entity.BatchStatusInProgress)
			store.mu.Lock()
			created := *store.rows[id]
			store.mu.Unlock()
			c.JSON(http.StatusCreated, created)
		})

		api.PUT("/batches/:id", func(c *gin.Context) {
			row, ok := store.findRow(c)
			if !ok {
				return
			}
			var req struct {
				Status         *string `json:"status"`
				ProcessSegment *string `json:"process_segment"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
				return
			}
			store.mu.Lock()
			if req.Status != nil {
				row.Status = *req.Status
			}
			if req.ProcessSegment != nil {
				row.ProcessSegment = *req.ProcessSegment
			}
			updated := *row
			store.mu.Unlock()
			c.JSON(http.StatusOK, updated)
		})

		api.DELETE("/batches/:id", func(c *gin.Context) {
			row, ok := store.findRow(c)
			if !ok {
				return
			}
			store.mu.Lock()
			delete(store.rows, row.ID)
			store.mu.Unlock()
			c.Status(http.StatusNoContent)
		})

		api.POST("/batches/:id/duplicate", func(c *gin.Context) {
			row, ok := store.findRow(c)
			if !ok {
				return
			}
			var req struct {
				BatchNumber    string `json:"batch_number"`
				ProductName    string `json:"product_name"`
				ProcessSegment string `json:"process_segment"`
				CopyRecords    bool   `json:"copy_records"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
				return
			}
			id := store.SeedBatch(req.BatchNumber, req.ProductName, req.ProcessSegment, entity.BatchStatusInProgress)
			if req.CopyRecords {
				store.mu.Lock()
				for _, rec := range store.materials[row.ID] {
					rec.ID = store.nextID
					store.nextID++
					rec.BatchID = id
					store.materials[id] = append(store.materials[id], rec)
				}
				store.mu.Unlock()
			}
			store.mu.Lock()
			created := *store.rows[id]
			store.mu.Unlock()
			c.JSON(http.StatusCreated, created)
		})

		api.GET("/process_segments", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.Segments)
		})

		api.GET("/segment_definitions", func(c *gin.Context) {
			if store.FailSegmentDefs {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "定义服务不可用"})
				return
			}
			def := store.Definitions[c.Query("segment")]
			c.JSON(http.StatusOK, def)
		})

		api.GET("/config/record_fields", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.FieldConfig)
		})

		registerMaterialRoutes(api, store)
		registerEquipmentRoutes(api, store)
		registerQualityRoutes(api, store)
	}
}

// findRow 解析:id并取行，不存在时响应404
func (s *Store) findRow(c *gin.Context) (*entity.Batch, bool) {
	var id int64
	if _, err := fmt.Sscanf(c.Param("id"), "%d", &id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "批号id格式错误"})
		return nil, false
	}
	s.mu.Lock()
	row, ok := s.rows[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "批号不存在"})
		return nil, false
	}
	return row, true
}

// paramID 解析路径参数为int64
func paramID(c *gin.Context, name string) (int64, bool) {
	var id int64
	if _, err := fmt.Sscanf(c.Param(name), "%d", &id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id格式错误"})
		return 0, false
	}
	return id, true
}

// multipartPayload 解析三段式multipart表单
func multipartPayload(c *gin.Context, payload interface{}) ([]string, []string, bool) {
	if err := json.Unmarshal([]byte(c.PostForm("payload")), payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload格式错误"})
		return nil, nil, false
	}
	existing := []string{}
	if raw := c.PostForm("existing_attachments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "附件保留列表格式错误"})
			return nil, nil, false
		}
	}
	var uploaded []string
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		for _, fh := range mf.File["attachments"] {
			uploaded = append(uploaded, fh.Filename)
		}
	}
	return existing, uploaded, true
}

// buildAttachments 保留路径与新文件名合并为附件集合
func buildAttachments(existing, uploaded []string) []entity.Attachment {
	attachments := make([]entity.Attachment, 0, len(existing)+len(uploaded))
	for _, path := range existing {
		attachments = append(attachments, entity.Attachment{Name: path, Path: path})
	}
	for _, name := range uploaded {
		attachments = append(attachments, entity.Attachment{
			Name: name,
			Path: "/uploads/" + name,
		})
	}
	return attachments
}
