// Package api 批号追踪服务的HTTP客户端
// 封装JSON与multipart两种请求形态，统一错误解析与请求日志
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultTimeout 单次请求的默认超时
const defaultTimeout = 30 * time.Second

// APIError 服务端返回的非2xx错误
type APIError struct {
	Status  int    // HTTP状态码
	Message string // 服务端错误文案，解析失败时为通用文案
}

func (e *APIError) Error() string {
	return fmt.Sprintf("服务端错误[%d]: %s", e.Status, e.Message)
}

// Client 批号追踪API客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 创建客户端实例。timeout为0时使用默认30秒
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// doRequest 执行JSON请求
// method: HTTP方法（GET/POST/PUT/DELETE）
// path: API路径（如 /api/batches）
// body: 请求体（会被JSON序列化，nil则不发送body）
// result: 响应结构体指针（会被JSON反序列化，nil则丢弃响应体）
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return c.send(req, result)
}

// Upload 待上传的附件文件
type Upload struct {
	Filename string
	Content  []byte
}

// doMultipart 执行multipart请求
// 三段式表单：payload为记录字段JSON，existing_attachments为保留的附件路径JSON数组，
// attachments为零或多个新上传文件。
func (c *Client) doMultipart(ctx context.Context, method, path string, payload interface{}, existingAttachments []string, files []Upload, result interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化payload失败: %w", err)
	}
	if existingAttachments == nil {
		existingAttachments = []string{}
	}
	existingBytes, err := json.Marshal(existingAttachments)
	if err != nil {
		return fmt.Errorf("序列化附件保留列表失败: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("payload", string(payloadBytes)); err != nil {
		return fmt.Errorf("写入payload字段失败: %w", err)
	}
	if err := writer.WriteField("existing_attachments", string(existingBytes)); err != nil {
		return fmt.Errorf("写入附件保留列表失败: %w", err)
	}
	for _, file := range files {
		part, err := writer.CreateFormFile("attachments", file.Filename)
		if err != nil {
			return fmt.Errorf("创建文件字段失败: %w", err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return fmt.Errorf("写入文件内容失败: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("结束multipart失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.send(req, result)
}

// send 发出请求并统一处理响应。非2xx状态解析错误包体后返回APIError
func (c *Client) send(req *http.Request, result interface{}) error {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("HTTP请求失败",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	c.logger.Debug("HTTP请求完成",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: parseErrorMessage(respBody)}
	}

	if result != nil && len(respBody) > 0 && resp.StatusCode != http.StatusNoContent {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("解析响应体失败: %w", err)
		}
	}
	return nil
}

// parseErrorMessage 提取服务端错误文案，兼容 {error} 与 {message} 两种包体
func parseErrorMessage(body []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return "操作失败"
}
