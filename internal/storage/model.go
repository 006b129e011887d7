// internal/storage/model.go
//
// 定義資料目錄中各檔案的名稱，以及紀錄列與 CSV 欄位之間的轉換。
// 檔名沿用既有資料目錄，舊資料可直接讀入。
package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"pointsale/internal/register"
)

// 設定檔（整份覆寫）。
const (
	FileItemCount          = "product_count.csv"
	FileQualificationCount = "qualification_count.csv"
	FileQuestionCount      = "survey_count.csv"
	FileImageScale         = "image_scale.txt"
	FileItems              = "products.csv"
	FileQualifications     = "qualifications.csv"
	FileQuestions          = "question_responses.csv"
	FileShopName           = "shop_name.txt"
	FileMessage            = "persistent_text.txt"
	DirImages              = "images"
)

// 紀錄檔（只追加）。
const (
	FileTransactions     = "log.csv"
	FileSurveys          = "survey_log.csv"
	FileManagementLog    = "management_log.csv"
	FileQualificationLog = "qualification_log.csv"
)

// CSV 表頭。
var (
	itemHeader          = []string{"name", "price"}
	qualificationHeader = []string{"name", "discount"}
)

func countFile(kind register.CountKind) (string, int, error) {
	switch kind {
	case register.CountItems:
		return FileItemCount, register.DefaultItemCount, nil
	case register.CountQualifications:
		return FileQualificationCount, register.DefaultQualificationCount, nil
	case register.CountQuestions:
		return FileQuestionCount, register.DefaultQuestionCount, nil
	default:
		return "", 0, fmt.Errorf("unknown count kind %d", kind)
	}
}

func textFile(key register.TextKey) (string, error) {
	switch key {
	case register.TextShopName:
		return FileShopName, nil
	case register.TextMessage:
		return FileMessage, nil
	default:
		return "", fmt.Errorf("unknown text key %d", key)
	}
}

func auditFile(kind register.AuditKind) (string, error) {
	switch kind {
	case register.AuditManagement:
		return FileManagementLog, nil
	case register.AuditQualification:
		return FileQualificationLog, nil
	default:
		return "", fmt.Errorf("unknown audit kind %s", kind)
	}
}

// ─────────────────────────────
// 紀錄列 <-> CSV 欄位
// ─────────────────────────────

// 交易紀錄：id, date, time, name, qualification, total, q1..qN
func transactionRow(tx register.TransactionRecord) []string {
	row := []string{tx.ID, tx.Date, tx.Time, tx.Name, tx.Qualification, cast.ToString(tx.Total)}
	for _, q := range tx.Quantities {
		row = append(row, cast.ToString(q))
	}
	return row
}

// 問卷紀錄：id, date, time, name, qualification, answer, remarks
func surveyRow(sv register.SurveyRecord) []string {
	return []string{sv.ID, sv.Date, sv.Time, sv.Name, sv.Qualification, sv.Answer, sv.Remarks}
}

// splitID 取出資料列開頭的交易 ID。
// 舊格式資料列以日期開頭，沒有 ID，此時回傳空字串與原資料列。
func splitID(row []string) (string, []string) {
	if len(row) > 0 {
		if _, err := uuid.Parse(row[0]); err == nil {
			return row[0], row[1:]
		}
	}
	return "", row
}

func parseTransaction(row []string) (register.TransactionRecord, error) {
	id, rest := splitID(row)
	if len(rest) < 5 {
		return register.TransactionRecord{}, fmt.Errorf("transaction row has %d fields, want at least 5", len(rest))
	}
	total, err := parseInt(rest[4])
	if err != nil {
		return register.TransactionRecord{}, fmt.Errorf("transaction total: %w", err)
	}
	tx := register.TransactionRecord{
		ID:            id,
		Date:          rest[0],
		Time:          rest[1],
		Name:          rest[2],
		Qualification: rest[3],
		Total:         total,
		Quantities:    make([]int, 0, len(rest)-5),
	}
	for i, cell := range rest[5:] {
		q, err := parseInt(cell)
		if err != nil {
			return register.TransactionRecord{}, fmt.Errorf("transaction quantity %d: %w", i+1, err)
		}
		tx.Quantities = append(tx.Quantities, int(q))
	}
	return tx, nil
}

func parseSurvey(row []string) (register.SurveyRecord, error) {
	id, rest := splitID(row)
	if len(rest) < 5 {
		return register.SurveyRecord{}, fmt.Errorf("survey row has %d fields, want at least 5", len(rest))
	}
	sv := register.SurveyRecord{
		ID:            id,
		Date:          rest[0],
		Time:          rest[1],
		Name:          rest[2],
		Qualification: rest[3],
		Answer:        rest[4],
	}
	if len(rest) > 5 {
		sv.Remarks = rest[5]
	}
	return sv, nil
}

// parseInt 解析已寫入檔案的整數欄位（十進位，允許前後空白）。
func parseInt(cell string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
}
