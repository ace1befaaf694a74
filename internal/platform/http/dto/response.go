// Package dto はフィーチャー横断で使う共通レスポンス型を定義します。
package dto

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
