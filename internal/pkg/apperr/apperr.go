// internal/pkg/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 是一个封闭的错误分类集合。所有业务错误最终都归入其中一类，
// 请求边界根据 Kind 统一映射 HTTP 状态码。
type Kind string

const (
	Validation    Kind = "validation"     // 输入结构非法，附带字段级错误
	Unauthorized  Kind = "unauthorized"   // 未认证 / token 无效
	Forbidden     Kind = "forbidden"      // 角色或门店范围不匹配
	NotFound      Kind = "not_found"      // 引用的实体不存在
	Conflict      Kind = "conflict"       // 状态冲突，例如非法的订单状态流转
	InvalidAmount Kind = "invalid_amount" // 金额类业务规则违例，例如退款超过发票金额
	Internal      Kind = "internal"       // 未预期的内部错误
)

// Error 携带分类、可对外展示的消息、可选的字段级错误，以及内部原因。
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationErr 构造一个带字段级消息的输入校验错误。
func ValidationErr(fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: "invalid request", Fields: fields}
}

// Wrap 将内部错误包装为指定分类，message 对外可见，err 仅进日志。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As 判断 err 链上是否存在 *Error。
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind 判断 err 是否属于给定分类。
func IsKind(err error, kind Kind) bool {
	if ae, ok := As(err); ok {
		return ae.Kind == kind
	}
	return false
}

// HTTPStatus 将错误分类映射为 HTTP 状态码。
// 未分类的错误一律按 500 处理，不向外泄露内部细节。
func HTTPStatus(err error) int {
	ae, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case Validation, InvalidAmount:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 返回可安全对外展示的错误消息。
func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.Message != "" {
		return ae.Message
	}
	return "internal server error"
}

// PublicFields 返回字段级错误（可能为 nil）。
func PublicFields(err error) map[string]string {
	if ae, ok := As(err); ok {
		return ae.Fields
	}
	return nil
}
