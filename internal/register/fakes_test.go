// internal/register/fakes_test.go
//
// 測試用的記憶體版 Store / Ledger，不觸碰檔案系統。
// 可注入錯誤以驗證「寫入失敗時狀態不變」。

package register

import (
	"bytes"
	"errors"
	"io"
	"time"
)

type memStore struct {
	counts    map[CountKind]int
	items     []Item
	quals     []Qualification
	questions []Question
	texts     map[TextKey]string
	scale     int
	images    map[int][]byte

	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{
		counts: map[CountKind]int{},
		texts:  map[TextKey]string{},
		images: map[int][]byte{},
	}
}

func (m *memStore) LoadCount(kind CountKind) (int, error) {
	if n, ok := m.counts[kind]; ok {
		return n, nil
	}
	def := map[CountKind]int{
		CountItems:          DefaultItemCount,
		CountQualifications: DefaultQualificationCount,
		CountQuestions:      DefaultQuestionCount,
	}[kind]
	m.counts[kind] = def
	return def, nil
}

func (m *memStore) SaveCount(kind CountKind, n int) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.counts[kind] = n
	return nil
}

func (m *memStore) LoadItems(n int) ([]Item, error) {
	if m.items == nil {
		m.items = Defaults(n, DefaultItem)
	}
	return Resize(m.items, n, DefaultItem), nil
}

func (m *memStore) SaveItems(items []Item) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.items = append([]Item(nil), items...)
	return nil
}

func (m *memStore) LoadQualifications(n int) ([]Qualification, error) {
	if m.quals == nil {
		m.quals = Defaults(n, DefaultQualification)
	}
	return Resize(m.quals, n, DefaultQualification), nil
}

func (m *memStore) SaveQualifications(quals []Qualification) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.quals = append([]Qualification(nil), quals...)
	return nil
}

func (m *memStore) LoadQuestions(n int) ([]Question, error) {
	if m.questions == nil {
		m.questions = Defaults(n, DefaultQuestion)
	}
	return Resize(m.questions, n, DefaultQuestion), nil
}

func (m *memStore) SaveQuestions(questions []Question) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.questions = append([]Question(nil), questions...)
	return nil
}

func (m *memStore) LoadText(key TextKey) (string, error) { return m.texts[key], nil }

func (m *memStore) SaveText(key TextKey, value string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.texts[key] = value
	return nil
}

func (m *memStore) LoadImageScale() (int, error) {
	if m.scale == 0 {
		m.scale = DefaultImageScale
	}
	return m.scale, nil
}

func (m *memStore) SaveImageScale(scale int) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.scale = scale
	return nil
}

func (m *memStore) SaveImage(index int, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.images[index] = b
	return nil
}

func (m *memStore) OpenImage(index int) (io.ReadCloser, error) {
	b, ok := m.images[index]
	if !ok {
		return nil, ErrNoImage
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type memLedger struct {
	txs    []TransactionRecord
	svs    []SurveyRecord
	audits map[AuditKind][]AuditRecord

	appendErr error
}

func newMemLedger() *memLedger {
	return &memLedger{audits: map[AuditKind][]AuditRecord{}}
}

func (l *memLedger) AppendPair(tx TransactionRecord, sv SurveyRecord) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.txs = append(l.txs, tx)
	l.svs = append(l.svs, sv)
	return nil
}

func (l *memLedger) LastPair() (TransactionRecord, SurveyRecord, error) {
	if len(l.txs) == 0 || len(l.svs) == 0 {
		return TransactionRecord{}, SurveyRecord{}, ErrEmptyHistory
	}
	return l.txs[len(l.txs)-1], l.svs[len(l.svs)-1], nil
}

func (l *memLedger) Transactions() ([]TransactionRecord, error) {
	return append([]TransactionRecord(nil), l.txs...), nil
}

func (l *memLedger) Surveys() ([]SurveyRecord, error) {
	return append([]SurveyRecord(nil), l.svs...), nil
}

func (l *memLedger) AppendAudit(kind AuditKind, rec AuditRecord) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.audits[kind] = append(l.audits[kind], rec)
	return nil
}

var errDiskFull = errors.New("disk full")

var fixedNow = time.Date(2024, 8, 27, 14, 5, 9, 0, time.Local)

func fixedClock() time.Time { return fixedNow }
