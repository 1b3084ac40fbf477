package nylas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/teamennovat/onebox-sub000/internal/config"
)

// APIError 表示服务商返回的非 2xx 响应。
//
// 处理器依赖它把上游状态码与原始错误文本原样透传给前端。
type APIError struct {
	StatusCode int
	Body       string
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	return fmt.Sprintf("provider API error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client 封装服务商 v3 REST API。
//
// 每个方法对应一次上游调用：无重试、无批量、无缓存。
type Client struct {
	apiKey      string
	baseURI     string
	clientID    string
	callbackURI string
	httpClient  *http.Client
	log         *zap.Logger
}

// NewClient 创建服务商 API 客户端
func NewClient(cfg *config.NylasConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURI:     cfg.APIURI,
		clientID:    cfg.ClientID,
		callbackURI: cfg.CallbackURI,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// ========== Folders ==========

// ListFolders 列出授权下的全部文件夹
func (c *Client) ListFolders(ctx context.Context, grantID string) ([]Folder, error) {
	path := fmt.Sprintf("/v3/grants/%s/folders", url.PathEscape(grantID))
	env, err := doJSON[listEnvelope[Folder]](c, ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ========== Messages ==========

// ListMessagesInput 邮件列表查询参数
type ListMessagesInput struct {
	FolderID   string // 文件夹过滤（可选）
	Search     string // 原生搜索串（可选）
	Limit      int    // 页大小
	Cursor     string // 服务商游标（可选）
	UnreadOnly bool   // 仅未读
}

// ListMessages 按游标分页列出邮件
func (c *Client) ListMessages(ctx context.Context, grantID string, input ListMessagesInput) (MessagePage, error) {
	q := url.Values{}
	if input.FolderID != "" {
		q.Set("in", input.FolderID)
	}
	if input.Search != "" {
		q.Set("search_query_native", input.Search)
	}
	if input.Limit > 0 {
		q.Set("limit", strconv.Itoa(input.Limit))
	}
	if input.Cursor != "" {
		q.Set("page_token", input.Cursor)
	}
	if input.UnreadOnly {
		q.Set("unread", "true")
	}

	path := fmt.Sprintf("/v3/grants/%s/messages", url.PathEscape(grantID))
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	env, err := doJSON[listEnvelope[Message]](c, ctx, http.MethodGet, path, nil)
	if err != nil {
		return MessagePage{}, err
	}
	return MessagePage{Messages: env.Data, NextCursor: env.NextCursor}, nil
}

// GetMessage 获取单封邮件详情
func (c *Client) GetMessage(ctx context.Context, grantID, messageID string) (*Message, error) {
	path := fmt.Sprintf("/v3/grants/%s/messages/%s", url.PathEscape(grantID), url.PathEscape(messageID))
	env, err := doJSON[objectEnvelope[Message]](c, ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// UpdateMessage 更新邮件（星标/已读/移动文件夹）
func (c *Client) UpdateMessage(ctx context.Context, grantID, messageID string, req UpdateMessageRequest) (*Message, error) {
	path := fmt.Sprintf("/v3/grants/%s/messages/%s", url.PathEscape(grantID), url.PathEscape(messageID))
	env, err := doJSON[objectEnvelope[Message]](c, ctx, http.MethodPut, path, req)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// DeleteMessage 删除邮件
func (c *Client) DeleteMessage(ctx context.Context, grantID, messageID string) error {
	path := fmt.Sprintf("/v3/grants/%s/messages/%s", url.PathEscape(grantID), url.PathEscape(messageID))
	_, err := doJSON[json.RawMessage](c, ctx, http.MethodDelete, path, nil)
	return err
}

// Send 发送邮件
func (c *Client) Send(ctx context.Context, grantID string, req SendRequest) (*Message, error) {
	path := fmt.Sprintf("/v3/grants/%s/messages/send", url.PathEscape(grantID))
	env, err := doJSON[objectEnvelope[Message]](c, ctx, http.MethodPost, path, req)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ========== Drafts ==========

// ListDrafts 列出草稿
func (c *Client) ListDrafts(ctx context.Context, grantID string) ([]Draft, error) {
	path := fmt.Sprintf("/v3/grants/%s/drafts", url.PathEscape(grantID))
	env, err := doJSON[listEnvelope[Draft]](c, ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateDraft 创建草稿
func (c *Client) CreateDraft(ctx context.Context, grantID string, draft Draft) (*Draft, error) {
	path := fmt.Sprintf("/v3/grants/%s/drafts", url.PathEscape(grantID))
	env, err := doJSON[objectEnvelope[Draft]](c, ctx, http.MethodPost, path, draft)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// GetDraft 获取草稿详情
func (c *Client) GetDraft(ctx context.Context, grantID, draftID string) (*Draft, error) {
	path := fmt.Sprintf("/v3/grants/%s/drafts/%s", url.PathEscape(grantID), url.PathEscape(draftID))
	env, err := doJSON[objectEnvelope[Draft]](c, ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// UpdateDraft 更新草稿
func (c *Client) UpdateDraft(ctx context.Context, grantID, draftID string, draft Draft) (*Draft, error) {
	path := fmt.Sprintf("/v3/grants/%s/drafts/%s", url.PathEscape(grantID), url.PathEscape(draftID))
	env, err := doJSON[objectEnvelope[Draft]](c, ctx, http.MethodPut, path, draft)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// DeleteDraft 删除草稿
func (c *Client) DeleteDraft(ctx context.Context, grantID, draftID string) error {
	path := fmt.Sprintf("/v3/grants/%s/drafts/%s", url.PathEscape(grantID), url.PathEscape(draftID))
	_, err := doJSON[json.RawMessage](c, ctx, http.MethodDelete, path, nil)
	return err
}

// ========== Attachments ==========

// DownloadAttachment 下载附件内容
//
// 返回响应体流与 Content-Type，由调用方负责关闭流。
func (c *Client) DownloadAttachment(ctx context.Context, grantID, attachmentID, messageID string) (io.ReadCloser, string, error) {
	path := fmt.Sprintf("/v3/grants/%s/attachments/%s/download?message_id=%s",
		url.PathEscape(grantID), url.PathEscape(attachmentID), url.QueryEscape(messageID))

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// ========== OAuth ==========

// AuthURL 构造 OAuth 授权跳转地址
func (c *Client) AuthURL(state, loginHint string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.callbackURI)
	q.Set("response_type", "code")
	q.Set("access_type", "online")
	if state != "" {
		q.Set("state", state)
	}
	if loginHint != "" {
		q.Set("login_hint", loginHint)
	}
	return c.baseURI + "/v3/connect/auth?" + q.Encode()
}

// ExchangeCode 用授权码换取 grant
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenExchangeResponse, error) {
	body := map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.apiKey,
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  c.callbackURI,
	}
	resp, err := doJSON[TokenExchangeResponse](c, ctx, http.MethodPost, "/v3/connect/token", body)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetGrant 查询授权详情
func (c *Client) GetGrant(ctx context.Context, grantID string) (*Grant, error) {
	path := fmt.Sprintf("/v3/grants/%s", url.PathEscape(grantID))
	env, err := doJSON[objectEnvelope[Grant]](c, ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ========== 内部辅助 ==========

// do 发送一次带认证的 HTTP 请求
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURI+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// doJSON 发送请求并解析 JSON 响应
//
// 非 2xx 响应转换为 *APIError，保留上游状态码与原始错误文本。
func doJSON[T any](c *Client, ctx context.Context, method, path string, body interface{}) (T, error) {
	var zero T

	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if len(raw) == 0 {
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}
