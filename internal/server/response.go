// internal/server/response.go
//
// 統一 HTTP 回應格式：成功回應為 JSON，錯誤回應為 {"error": "..."}。
// 領域錯誤到狀態碼的對應集中在 statusFor。
package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"pointsale/internal/register"
)

// errConfirmationRequired 代表破壞性操作（復原、清除）未附上確認。
var errConfirmationRequired = errors.New("confirmation required: send {\"confirm\": true}")

type errorBody struct {
	Error string `json:"error"`
}

type textBody struct {
	Text string `json:"text"`
}

// writeJSON 輸出成功回應。
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	render.Status(r, code)
	render.JSON(w, r, v)
}

// writeErr 依錯誤種類決定狀態碼後輸出。
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, r, statusFor(err), errorBody{Error: err.Error()})
}

// badRequest 用於請求本身無法解析（JSON 格式錯誤、路徑參數不是數字）。
func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, r, http.StatusBadRequest, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case register.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, register.ErrIndexOutOfRange), errors.Is(err, register.ErrNoImage):
		return http.StatusNotFound
	case errors.Is(err, register.ErrEmptyHistory), errors.Is(err, register.ErrUnpaired):
		return http.StatusConflict
	case errors.Is(err, errConfirmationRequired):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
