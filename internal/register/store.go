// internal/register/store.go
//
// Session 依賴的持久化介面。實作位於 internal/storage；
// register 不認識檔案格式，storage 則依賴本套件的型別（依賴反轉）。

package register

import "io"

// CountKind 指定要讀寫哪一個數量設定。
type CountKind int

const (
	CountItems CountKind = iota
	CountQualifications
	CountQuestions
)

// TextKey 指定自由文字設定。
type TextKey int

const (
	TextShopName TextKey = iota
	TextMessage
)

// Store 為設定檔的載入與儲存。
// Load* 在檔案不存在時回傳預設值並立即寫入，不會回報檔案不存在的錯誤。
// Save* 一律整份覆寫。
type Store interface {
	LoadCount(kind CountKind) (int, error)
	SaveCount(kind CountKind, n int) error

	LoadItems(n int) ([]Item, error)
	SaveItems(items []Item) error
	LoadQualifications(n int) ([]Qualification, error)
	SaveQualifications(quals []Qualification) error
	LoadQuestions(n int) ([]Question, error)
	SaveQuestions(questions []Question) error

	LoadText(key TextKey) (string, error)
	SaveText(key TextKey, value string) error
	LoadImageScale() (int, error)
	SaveImageScale(scale int) error

	SaveImage(index int, r io.Reader) error
	OpenImage(index int) (io.ReadCloser, error)
}

// Ledger 為只追加的紀錄檔。
type Ledger interface {
	// AppendPair 寫入同一次結帳的交易與問卷紀錄：兩者皆成功，或兩者皆未寫入。
	AppendPair(tx TransactionRecord, sv SurveyRecord) error
	// LastPair 回傳最後一組交易與問卷紀錄；任一為空時回傳 ErrEmptyHistory。
	LastPair() (TransactionRecord, SurveyRecord, error)
	Transactions() ([]TransactionRecord, error)
	Surveys() ([]SurveyRecord, error)
	AppendAudit(kind AuditKind, rec AuditRecord) error
}
