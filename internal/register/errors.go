// internal/register/errors.go
//
// 本檔集中定義領域錯誤。上層（HTTP adapter）依此轉換為狀態碼。

package register

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHistory 代表交易或問卷紀錄為空，無法復原。
	ErrEmptyHistory = errors.New("history is empty")

	// ErrUnpaired 代表最後一筆交易找不到對應的問卷紀錄。
	ErrUnpaired = errors.New("last transaction has no matching survey record")

	// ErrIndexOutOfRange 代表商品索引超出目錄範圍。
	ErrIndexOutOfRange = errors.New("item index out of range")

	// ErrNoImage 代表該商品尚未設定圖片。
	ErrNoImage = errors.New("item has no image")
)

// ValidationError 代表操作員輸入不合法（空白必填欄位、非數字、非正數數量）。
// 回傳此錯誤時不會有任何寫入。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation 回報 err 鏈中是否含有 *ValidationError。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
