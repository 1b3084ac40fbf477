package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamennovat/onebox-sub000/internal/ai"
	"github.com/teamennovat/onebox-sub000/internal/nylas"
	"github.com/teamennovat/onebox-sub000/internal/service"
	"github.com/teamennovat/onebox-sub000/internal/storage"
)

// 常用响应消息
const (
	MsgInvalidRequest  = "请求参数无效"
	MsgInternalError   = "服务器内部错误"
	MsgGrantForbidden  = "无权访问该邮箱授权"
	MsgAccountNotFound = "邮箱账户不存在"
	MsgLabelNotFound   = "标签不存在"
	MsgUserNotFound    = "用户不存在"
	MsgRateLimited     = "AI 请求过于频繁，请稍后重试"
)

// errorStatus 业务错误到 HTTP 状态码与消息的映射
var errorStatus = map[error]struct {
	status int
	msg    string
}{
	storage.ErrAccountNotFound:      {http.StatusNotFound, MsgAccountNotFound},
	storage.ErrLabelNotFound:        {http.StatusNotFound, MsgLabelNotFound},
	storage.ErrUserNotFound:         {http.StatusNotFound, MsgUserNotFound},
	storage.ErrMessageLabelNotFound: {http.StatusNotFound, "邮件标签不存在"},
	service.ErrAccountForbidden:     {http.StatusForbidden, MsgGrantForbidden},
	service.ErrUnknownLabel:         {http.StatusBadRequest, "标签名称不在预置目录中"},
	service.ErrEmailTaken:           {http.StatusConflict, "该邮箱已注册"},
	service.ErrInvalidCredentials:   {http.StatusUnauthorized, "邮箱或密码错误"},
	service.ErrUserDisabled:         {http.StatusForbidden, "账户已被禁用"},
	service.ErrWeakPassword:         {http.StatusBadRequest, "密码长度至少 8 位"},
	service.ErrRateLimited:          {http.StatusTooManyRequests, MsgRateLimited},
	service.ErrEmptyInstruction:     {http.StatusBadRequest, "指令内容不能为空"},
}

// RespondError 将业务错误转换为 HTTP 响应
//
// 服务商返回的错误原样透传上游状态码与错误体；
// 未识别的错误一律返回 500。
func RespondError(c *gin.Context, err error) {
	var providerErr *nylas.APIError
	if errors.As(err, &providerErr) {
		c.Data(providerErr.StatusCode, "application/json", []byte(providerErr.Body))
		return
	}

	var aiErr *ai.APIError
	if errors.As(err, &aiErr) {
		c.Data(aiErr.StatusCode, "application/json", []byte(aiErr.Body))
		return
	}

	for target, mapped := range errorStatus {
		if errors.Is(err, target) {
			Error(c, mapped.status, mapped.msg)
			return
		}
	}

	InternalError(c, MsgInternalError)
}
