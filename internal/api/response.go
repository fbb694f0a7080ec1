// Package api はHTTP境界で共有するレスポンス型とエラー変換を提供します。
package api

// ErrorResponse は全エンドポイント共通の失敗レスポンスです。
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// DataResponse wraps a single payload.
type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// MessageResponse is returned by endpoints that have nothing else to report.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK は成功レスポンスを生成します。
func OK(data any) DataResponse {
	return DataResponse{Success: true, Data: data}
}
