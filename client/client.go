// Package client is a Go client for the examseat HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"examseat/internal/domain"
	"examseat/internal/notify"
	"examseat/internal/service"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// envelope 服务端统一响应包
type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// 业务码到错误类型的映射，与服务端 httpapi 保持一致
var codeKinds = map[int]error{
	4001: domain.ErrValidation,
	4041: domain.ErrDatasetNotFound,
	4042: domain.ErrRecordNotFound,
	4043: domain.ErrOccupantNotFound,
	4091: domain.ErrNoRoomsAvailable,
	5001: domain.ErrPersistence,
}

// APIError 服务端返回的错误；Kind 匹配 domain 错误类型
type APIError struct {
	Status  int
	Code    int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("examseat api: %s (status %d, code %d)", e.Message, e.Status, e.Code)
}

func (e *APIError) Unwrap() error { return e.Kind }

// Client examseat API 客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// New 创建客户端；baseURL 形如 http://localhost:8080
func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{httpClient: httpClient, logger: logger}
}

func (c *Client) do(req *resty.Request, method, path string, out any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("examseat API call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to call examseat API: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode(), err)
	}
	if resp.IsError() || env.Type == "error" {
		return &APIError{Status: resp.StatusCode(), Code: env.Code, Message: env.Message, Kind: codeKinds[env.Code]}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

// Allocate 上传名单文件（csv / xlsx）并为 subject 生成分配
func (c *Client) Allocate(ctx context.Context, subject, filename string, roster io.Reader) (*service.AllocateResult, error) {
	var out service.AllocateResult
	req := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{"subject": subject}).
		SetFileReader("file", filename, roster)
	if err := c.do(req, http.MethodPost, apiPrefix+"/allocations", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Results 所有科目的分配结果
func (c *Client) Results(ctx context.Context) (map[string][]domain.AssignmentRecord, error) {
	out := map[string][]domain.AssignmentRecord{}
	if err := c.do(c.httpClient.R().SetContext(ctx), http.MethodGet, apiPrefix+"/allocations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Dataset 单个科目的数据集
func (c *Client) Dataset(ctx context.Context, subject string) (*domain.SubjectDataset, error) {
	var out domain.SubjectDataset
	if err := c.do(c.httpClient.R().SetContext(ctx), http.MethodGet, subjectPath(subject), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Record 某考场的记录
func (c *Client) Record(ctx context.Context, subject, roomID string) (*domain.AssignmentRecord, error) {
	var out domain.AssignmentRecord
	if err := c.do(c.httpClient.R().SetContext(ctx), http.MethodGet, roomPath(subject, roomID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplaceOccupants 覆盖考场的考生列表
func (c *Client) ReplaceOccupants(ctx context.Context, subject, roomID string, occupants []string) (*domain.AssignmentRecord, error) {
	if occupants == nil {
		occupants = []string{}
	}
	var out domain.AssignmentRecord
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string][]string{"occupants": occupants})
	if err := c.do(req, http.MethodPut, roomPath(subject, roomID)+"/occupants", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveOccupant 从考场移除一个考生
func (c *Client) RemoveOccupant(ctx context.Context, subject, roomID, identifier string) (*domain.AssignmentRecord, error) {
	var out domain.AssignmentRecord
	path := roomPath(subject, roomID) + "/occupants/" + url.PathEscape(identifier)
	if err := c.do(c.httpClient.R().SetContext(ctx), http.MethodDelete, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Drop 删除科目数据集（幂等）
func (c *Client) Drop(ctx context.Context, subject string) error {
	return c.do(c.httpClient.R().SetContext(ctx), http.MethodDelete, subjectPath(subject), nil)
}

// Export 下载名单；format 为 "xlsx" 或 "csv"
func (c *Client) Export(ctx context.Context, subject, format string) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("format", format).
		Get(subjectPath(subject) + "/export")
	if err != nil {
		return nil, fmt.Errorf("failed to call examseat API: %w", err)
	}
	if resp.IsError() {
		var env envelope
		_ = json.Unmarshal(resp.Body(), &env)
		return nil, &APIError{Status: resp.StatusCode(), Code: env.Code, Message: env.Message, Kind: codeKinds[env.Code]}
	}
	return resp.Body(), nil
}

type roomList struct {
	Items         []domain.Room `json:"items"`
	Total         int           `json:"total"`
	TotalCapacity int           `json:"total_capacity"`
}

// Rooms 考场目录
func (c *Client) Rooms(ctx context.Context) ([]domain.Room, error) {
	var out roomList
	if err := c.do(c.httpClient.R().SetContext(ctx), http.MethodGet, apiPrefix+"/rooms", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// UpsertRoom 新建或更新考场
func (c *Client) UpsertRoom(ctx context.Context, room domain.Room) (*domain.Room, error) {
	var out domain.Room
	req := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(room)
	if err := c.do(req, http.MethodPost, apiPrefix+"/rooms", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRoom 删除考场
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	return c.do(c.httpClient.R().SetContext(ctx), http.MethodDelete, apiPrefix+"/rooms/"+url.PathEscape(roomID), nil)
}

type eventList struct {
	Items []notify.Event `json:"items"`
}

// Events 最近的名单事件
func (c *Client) Events(ctx context.Context, limit int) ([]notify.Event, error) {
	var out eventList
	req := c.httpClient.R().SetContext(ctx).SetQueryParam("limit", fmt.Sprint(limit))
	if err := c.do(req, http.MethodGet, apiPrefix+"/events", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func subjectPath(subject string) string {
	return apiPrefix + "/allocations/" + url.PathEscape(subject)
}

func roomPath(subject, roomID string) string {
	return subjectPath(subject) + "/rooms/" + url.PathEscape(roomID)
}
