// internal/register/catalog.go

// Package register 定義收銀核心：商品目錄、資格折扣、問卷選項、金額計算，
// 以及結帳 / 復原 / 清除等交易流程。不含任何 HTTP 或檔案格式細節。
//
// 所有清單皆以「索引」作為識別：改名不改身分，調整數量時由尾端補上預設值或截斷。
package register

import "fmt"

// 預設數量與預設值，與既有資料檔相容。
const (
	DefaultItemCount          = 6
	DefaultQualificationCount = 3
	DefaultQuestionCount      = 3
	DefaultImageScale         = 1

	DefaultItemPrice int64 = 10000
)

// Item 為目錄中的一項商品；單價以最小貨幣單位（円）儲存。
type Item struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Qualification 為顧客資格，附帶對小計的折扣百分比。
type Qualification struct {
	Name     string `json:"name"`
	Discount int    `json:"discount"`
}

// Question 為問卷的一個回答選項。
type Question struct {
	Label string `json:"label"`
}

// DefaultItem 回傳索引 i（0 起算）的預設商品。
func DefaultItem(i int) Item {
	return Item{Name: fmt.Sprintf("品%d", i+1), Price: DefaultItemPrice}
}

// DefaultQualification 回傳索引 i 的預設資格（無折扣）。
func DefaultQualification(i int) Qualification {
	return Qualification{Name: fmt.Sprintf("資格 %d", i+1), Discount: 0}
}

var initialQuestions = []string{"未回答", "回答1", "回答2"}

// DefaultQuestion 回傳索引 i 的預設問卷選項：
// 前三項為固定文字，其後以「質問 N」補齊。
func DefaultQuestion(i int) Question {
	if i >= 0 && i < len(initialQuestions) {
		return Question{Label: initialQuestions[i]}
	}
	return Question{Label: fmt.Sprintf("質問 %d", i+1)}
}

// Resize 回傳長度恰為 n 的新切片，不修改輸入：
//   - 變長：以 def(i) 補上新索引的預設值
//   - 變短：由尾端截斷，被截掉的內容不可復原
//
// n 為負數時視為 0。
func Resize[T any](list []T, n int, def func(i int) T) []T {
	if n < 0 {
		n = 0
	}
	out := make([]T, n)
	k := copy(out, list)
	for i := k; i < n; i++ {
		out[i] = def(i)
	}
	return out
}

func zeroCount(int) int { return 0 }

// Defaults 產生 n 筆預設值，等同 Resize(nil, n, def)。
func Defaults[T any](n int, def func(i int) T) []T {
	return Resize[T](nil, n, def)
}
