// Package handler 包含了所有 HTTP 接口的处理函数。
package handler

import "github.com/gin-gonic/gin"

// Response 是统一的响应结构。
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// Success 返回成功响应。
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 0, Msg: "success", Data: data})
}

// Fail 返回失败响应。
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Code: status, Msg: msg})
}
