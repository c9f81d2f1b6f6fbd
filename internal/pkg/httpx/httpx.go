// internal/pkg/httpx/httpx.go
package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"dispatch/internal/pkg/apperr"
	"dispatch/internal/pkg/logger"
)

// ErrorResponse 是所有错误出口的统一结构。
type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// RespondError 在请求边界将任意错误翻译为结构化响应。
// 非 apperr 错误一律 500，并把内部细节留在日志里。
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	kind := string(apperr.Internal)
	if ae, ok := apperr.As(err); ok {
		kind = string(ae.Kind)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:  apperr.PublicMessage(err),
		Kind:   kind,
		Fields: apperr.PublicFields(err),
	})
}

// BindJSON 解析并校验请求体，校验失败时返回带字段级消息的 validation 错误。
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validatorv10.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fieldName(fe)] = fieldMessage(fe)
			}
			return apperr.ValidationErr(fields)
		}
		return apperr.Wrap(apperr.Validation, "malformed request body", err)
	}
	return nil
}

// ParseUintParam 解析路径参数为 uint，失败时返回 validation 错误。
func ParseUintParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.ValidationErr(map[string]string{name: "must be a positive integer"})
	}
	return uint(v), nil
}

// ParseUintQuery 解析查询参数为 uint，失败时返回 validation 错误。
func ParseUintQuery(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, InvalidQueryErr(name, raw)
	}
	return uint(v), nil
}

// ParseIntQuery 解析查询参数为非负 int。
func ParseIntQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, InvalidQueryErr(name, raw)
	}
	return v, nil
}

// InvalidQueryErr 构造一个指向具体查询参数的 validation 错误。
func InvalidQueryErr(name, value string) error {
	return apperr.ValidationErr(map[string]string{name: "invalid value: " + value})
}

func fieldName(fe validatorv10.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "body"
	}
	// 驼峰转小写开头，与 JSON 字段习惯保持一致
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
