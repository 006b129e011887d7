// internal/storage/ledger.go
//
// 只追加的紀錄檔實作（register.Ledger）：交易紀錄、問卷紀錄與兩種稽核紀錄。
//
// 交易與問卷紀錄必須成對：AppendPair 先追加交易列，再追加問卷列，
// 任一步失敗就把已經變長的檔案截回原本長度，兩個檔案不會只寫入一邊。
// 兩列以相同的交易 ID 開頭，復原時依 ID 配對。
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"pointsale/internal/register"
)

// Ledger 將紀錄檔保存在資料目錄下。同一資料目錄只支援單一寫入者。
type Ledger struct {
	dir string
	log *zap.Logger
}

var _ register.Ledger = (*Ledger)(nil)

// NewLedger 建立 Ledger；資料目錄不存在時會一併建立。
func NewLedger(dir string, log *zap.Logger) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{dir: dir, log: log}, nil
}

func (l *Ledger) path(name string) string { return filepath.Join(l.dir, name) }

// AppendPair 寫入同一次結帳的交易與問卷紀錄，兩者皆成功或皆不留下。
func (l *Ledger) AppendPair(tx register.TransactionRecord, sv register.SurveyRecord) error {
	txPath := l.path(FileTransactions)
	txSize, err := appendRow(txPath, transactionRow(tx))
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	if _, err := appendRow(l.path(FileSurveys), surveyRow(sv)); err != nil {
		err = fmt.Errorf("append survey: %w", err)
		if rbErr := os.Truncate(txPath, txSize); rbErr != nil {
			l.log.Error("transaction rollback failed", zap.String("id", tx.ID), zap.Error(rbErr))
			return errors.Join(err, fmt.Errorf("roll back transaction: %w", rbErr))
		}
		l.log.Warn("transaction rolled back", zap.String("id", tx.ID), zap.Error(err))
		return err
	}
	return nil
}

// appendRow 追加一列並 fsync，回傳追加前的檔案長度。
// 寫入失敗時會把檔案截回原長度。
func appendRow(path string, row []string) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err
	}
	size := info.Size()

	w := csv.NewWriter(f)
	err = w.Write(row)
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		_ = f.Truncate(size)
		f.Close()
		return size, err
	}
	return size, f.Close()
}

// LastPair 回傳最後一筆交易紀錄與其對應的問卷紀錄。
// 兩者 ID 相同（含兩者皆為舊格式、沒有 ID）時直接配對；
// 否則往前尋找相同 ID 的問卷紀錄，找不到時回傳 register.ErrUnpaired。
func (l *Ledger) LastPair() (register.TransactionRecord, register.SurveyRecord, error) {
	txs, err := l.Transactions()
	if err != nil {
		return register.TransactionRecord{}, register.SurveyRecord{}, err
	}
	svs, err := l.Surveys()
	if err != nil {
		return register.TransactionRecord{}, register.SurveyRecord{}, err
	}
	if len(txs) == 0 || len(svs) == 0 {
		return register.TransactionRecord{}, register.SurveyRecord{}, register.ErrEmptyHistory
	}

	tx := txs[len(txs)-1]
	for i := len(svs) - 1; i >= 0; i-- {
		if svs[i].ID == tx.ID {
			return tx, svs[i], nil
		}
		if tx.ID == "" {
			break
		}
	}
	return register.TransactionRecord{}, register.SurveyRecord{}, register.ErrUnpaired
}

// Transactions 回傳所有交易紀錄（依寫入順序）。
func (l *Ledger) Transactions() ([]register.TransactionRecord, error) {
	rows, err := l.readLog(FileTransactions)
	if err != nil {
		return nil, err
	}
	out := make([]register.TransactionRecord, 0, len(rows))
	for i, row := range rows {
		tx, err := parseTransaction(row)
		if err != nil {
			return nil, fmt.Errorf("read %s: row %d: %w", FileTransactions, i+1, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

// Surveys 回傳所有問卷紀錄（依寫入順序）。
func (l *Ledger) Surveys() ([]register.SurveyRecord, error) {
	rows, err := l.readLog(FileSurveys)
	if err != nil {
		return nil, err
	}
	out := make([]register.SurveyRecord, 0, len(rows))
	for i, row := range rows {
		sv, err := parseSurvey(row)
		if err != nil {
			return nil, fmt.Errorf("read %s: row %d: %w", FileSurveys, i+1, err)
		}
		out = append(out, sv)
	}
	return out, nil
}

// AppendAudit 追加一筆設定變更紀錄：date, time, entry...
func (l *Ledger) AppendAudit(kind register.AuditKind, rec register.AuditRecord) error {
	name, err := auditFile(kind)
	if err != nil {
		return err
	}
	row := append([]string{rec.Date, rec.Time}, rec.Entries...)
	if _, err := appendRow(l.path(name), row); err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}
	return nil
}

// readLog 讀取紀錄檔；尚未有任何紀錄（檔案不存在）時回傳空清單。
func (l *Ledger) readLog(name string) ([][]string, error) {
	rows, err := readCSV(l.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return rows, nil
}
