// internal/register/records.go
//
// 本檔定義寫入紀錄檔的資料列。這些紀錄只會被追加，寫入後不再修改。

package register

// 紀錄檔使用的日期與時間格式。
const (
	LogDateLayout   = "01-02"
	LogTimeLayout   = "15:04"
	AuditDateLayout = "06-01-02"
	AuditTimeLayout = "15:04:05"
)

// TransactionRecord 為一次結帳的交易紀錄。
// Quantities 的長度等於寫入當下的商品數。
// ID 與同一次結帳的 SurveyRecord 相同；舊格式資料列沒有 ID（空字串）。
type TransactionRecord struct {
	ID            string `json:"id,omitempty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Name          string `json:"name"`
	Qualification string `json:"qualification"`
	Total         int64  `json:"total"`
	Quantities    []int  `json:"quantities"`
}

// SurveyRecord 為同一次結帳的問卷回答。
type SurveyRecord struct {
	ID            string `json:"id,omitempty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Name          string `json:"name"`
	Qualification string `json:"qualification"`
	Answer        string `json:"answer"`
	Remarks       string `json:"remarks"`
}

// AuditKind 區分兩種設定變更稽核紀錄。
type AuditKind int

const (
	AuditManagement AuditKind = iota
	AuditQualification
)

func (k AuditKind) String() string {
	switch k {
	case AuditManagement:
		return "management"
	case AuditQualification:
		return "qualification"
	default:
		return "unknown"
	}
}

// AuditRecord 為一次設定套用的快照，例如 "品1:10000" 或 "会員:20%"。
type AuditRecord struct {
	Date    string
	Time    string
	Entries []string
}
