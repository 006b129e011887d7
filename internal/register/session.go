// internal/register/session.go

// Session 為收銀流程的聚合根：持有目錄、資格、問卷選項、各商品數量，
// 以及尚未結帳的暫存狀態（顧客名、備註、所選資格與回答）。
// 所有狀態變更都經由本檔的方法進行，並以單一互斥鎖序列化，
// 讓 HTTP adapter 從多個 goroutine 呼叫時仍維持一致。
package register

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session 見檔頭說明。零值不可用，請以 Open 建立。
type Session struct {
	mu     sync.Mutex
	store  Store
	ledger Ledger
	log    *zap.Logger
	now    func() time.Time
	newID  func() string

	items     []Item
	quals     []Qualification
	questions []Question
	counts    []int
	scale     int
	shopName  string
	message   string

	customer      string
	remarks       string
	qualification string
	answer        string
}

// Option 調整 Session 的相依元件。
type Option func(*Session)

// WithLogger 設定 logger；預設不輸出。
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock 替換時間來源（測試用）。
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator 替換交易 ID 產生器（測試用）。
func WithIDGenerator(gen func() string) Option {
	return func(s *Session) { s.newID = gen }
}

// State 為某一時刻的完整快照，供畫面重繪使用。
type State struct {
	Customer       string          `json:"customer"`
	Remarks        string          `json:"remarks"`
	Qualification  string          `json:"qualification"`
	Answer         string          `json:"answer"`
	Quantities     []int           `json:"quantities"`
	Items          []Item          `json:"items"`
	Qualifications []Qualification `json:"qualifications"`
	Questions      []Question      `json:"questions"`
	Totals         Totals          `json:"totals"`
	ImageScale     int             `json:"image_scale"`
}

// ItemInput 為商品設定表單的原始輸入。
type ItemInput struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// QualificationInput 為資格設定表單的原始輸入。
type QualificationInput struct {
	Name     string `json:"name"`
	Discount string `json:"discount"`
}

// Open 自 store 載入所有設定並建立 Session。
// 缺少的設定檔由 store 以預設值建立，因此首次啟動不會失敗。
func Open(store Store, ledger Ledger, opts ...Option) (*Session, error) {
	s := &Session{
		store:  store,
		ledger: ledger,
		log:    zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.resetTransient()
	s.log.Info("session opened",
		zap.Int("items", len(s.items)),
		zap.Int("qualifications", len(s.quals)),
		zap.Int("questions", len(s.questions)))
	return s, nil
}

func (s *Session) load() error {
	itemCount, err := s.store.LoadCount(CountItems)
	if err != nil {
		return fmt.Errorf("load item count: %w", err)
	}
	if s.items, err = s.store.LoadItems(itemCount); err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	qualCount, err := s.store.LoadCount(CountQualifications)
	if err != nil {
		return fmt.Errorf("load qualification count: %w", err)
	}
	if s.quals, err = s.store.LoadQualifications(qualCount); err != nil {
		return fmt.Errorf("load qualifications: %w", err)
	}
	questionCount, err := s.store.LoadCount(CountQuestions)
	if err != nil {
		return fmt.Errorf("load question count: %w", err)
	}
	if s.questions, err = s.store.LoadQuestions(questionCount); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if s.scale, err = s.store.LoadImageScale(); err != nil {
		return fmt.Errorf("load image scale: %w", err)
	}
	if s.shopName, err = s.store.LoadText(TextShopName); err != nil {
		return fmt.Errorf("load shop name: %w", err)
	}
	if s.message, err = s.store.LoadText(TextMessage); err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	s.counts = make([]int, len(s.items))
	return nil
}

// resetTransient 將暫存狀態回到初始值：數量歸零、清空名稱與備註、
// 資格與回答選回第一項。呼叫端需持有 mu。
func (s *Session) resetTransient() {
	s.counts = make([]int, len(s.items))
	s.customer = ""
	s.remarks = ""
	s.qualification = s.firstQualification()
	s.answer = s.firstAnswer()
}

func (s *Session) firstQualification() string {
	if len(s.quals) == 0 {
		return ""
	}
	return s.quals[0].Name
}

func (s *Session) firstAnswer() string {
	if len(s.questions) == 0 {
		return ""
	}
	return s.questions[0].Label
}

// totals 每次都重新計算。呼叫端需持有 mu。
func (s *Session) totals() Totals {
	return Compute(s.counts, s.items, DiscountFor(s.quals, s.qualification))
}

// State 回傳目前快照（值拷貝）。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Customer:       s.customer,
		Remarks:        s.remarks,
		Qualification:  s.qualification,
		Answer:         s.answer,
		Quantities:     append([]int(nil), s.counts...),
		Items:          append([]Item(nil), s.items...),
		Qualifications: append([]Qualification(nil), s.quals...),
		Questions:      append([]Question(nil), s.questions...),
		Totals:         s.totals(),
		ImageScale:     s.scale,
	}
}

// Totals 回傳目前的小計、折扣與請求額。
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals()
}

func (s *Session) Catalog() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

func (s *Session) Qualifications() []Qualification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Qualification(nil), s.quals...)
}

func (s *Session) Questions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Question(nil), s.questions...)
}

// Adjust 將第 index 項商品數量加上 delta，結果不低於 0；回傳新數量。
func (s *Session) Adjust(index, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.counts) {
		return 0, ErrIndexOutOfRange
	}
	s.counts[index] = max(0, s.counts[index]+delta)
	return s.counts[index], nil
}

// ClearCount 將第 index 項商品數量歸零。
func (s *Session) ClearCount(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.counts) {
		return ErrIndexOutOfRange
	}
	s.counts[index] = 0
	return nil
}

func (s *Session) SetCustomer(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = name
}

func (s *Session) SetRemarks(remarks string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remarks = remarks
}

// SelectQualification 設定所選資格。名稱不在清單中時折扣視為 0。
func (s *Session) SelectQualification(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualification = name
}

func (s *Session) SelectAnswer(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer = label
}

// Commit 完成結帳：
//  1. 顧客名（去除前後空白）不可為空，否則回傳 *ValidationError 且不寫入
//  2. 以同一時間戳與交易 ID 建立交易與問卷紀錄
//  3. 經 Ledger.AppendPair 寫入（兩者皆成功或皆不寫入）
//  4. 寫入成功後才重設暫存狀態
func (s *Session) Commit() (TransactionRecord, SurveyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(s.customer)
	if name == "" {
		return TransactionRecord{}, SurveyRecord{}, invalid("name", "customer name is required")
	}

	now := s.now()
	id := s.newID()
	date, clock := now.Format(LogDateLayout), now.Format(LogTimeLayout)
	tx := TransactionRecord{
		ID:            id,
		Date:          date,
		Time:          clock,
		Name:          name,
		Qualification: s.qualification,
		Total:         s.totals().Final,
		Quantities:    append([]int(nil), s.counts...),
	}
	sv := SurveyRecord{
		ID:            id,
		Date:          date,
		Time:          clock,
		Name:          name,
		Qualification: s.qualification,
		Answer:        s.answer,
		Remarks:       strings.TrimSpace(s.remarks),
	}
	if err := s.ledger.AppendPair(tx, sv); err != nil {
		s.log.Error("commit failed", zap.String("id", id), zap.Error(err))
		return TransactionRecord{}, SurveyRecord{}, fmt.Errorf("commit: %w", err)
	}

	s.log.Info("sale committed",
		zap.String("id", id),
		zap.String("qualification", tx.Qualification),
		zap.Int64("total", tx.Total))
	s.resetTransient()
	return tx, sv, nil
}

// Restore 以最後一組交易與問卷紀錄覆蓋目前暫存狀態。
// 紀錄檔不會被修改；目前未結帳的內容會遺失，呼叫端須先取得確認。
// 紀錄中的數量多於目前商品數時捨棄多餘部分，少於時補 0。
func (s *Session) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, sv, err := s.ledger.LastPair()
	if err != nil {
		return err
	}
	s.customer = tx.Name
	s.qualification = tx.Qualification
	s.answer = sv.Answer
	s.remarks = sv.Remarks
	s.counts = Resize(tx.Quantities, len(s.items), zeroCount)
	for i, c := range s.counts {
		s.counts[i] = max(0, c)
	}
	s.log.Info("sale restored", zap.String("id", tx.ID), zap.String("name", tx.Name))
	return nil
}

// Clear 清除暫存狀態（數量、名稱、備註、選項）。呼叫端須先取得確認。
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTransient()
}

// SetItemCount 變更商品數並寫入數量檔與商品檔。
// 新增的商品使用預設名稱與單價；各商品數量保留，新項目為 0。
func (s *Session) SetItemCount(n int) error {
	if n < 1 {
		return invalid("item count", "must be an integer >= 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := Resize(s.items, n, DefaultItem)
	if err := s.store.SaveCount(CountItems, n); err != nil {
		return fmt.Errorf("save item count: %w", err)
	}
	if err := s.store.SaveItems(items); err != nil {
		return fmt.Errorf("save items: %w", err)
	}
	s.items = items
	s.counts = Resize(s.counts, n, zeroCount)
	s.log.Info("item count updated", zap.Int("count", n))
	return nil
}

// SetQualificationCount 變更資格數並寫入數量檔與資格檔。
func (s *Session) SetQualificationCount(n int) error {
	if n < 1 {
		return invalid("qualification count", "must be an integer >= 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	quals := Resize(s.quals, n, DefaultQualification)
	if err := s.store.SaveCount(CountQualifications, n); err != nil {
		return fmt.Errorf("save qualification count: %w", err)
	}
	if err := s.store.SaveQualifications(quals); err != nil {
		return fmt.Errorf("save qualifications: %w", err)
	}
	s.quals = quals
	s.keepSelections()
	s.log.Info("qualification count updated", zap.Int("count", n))
	return nil
}

// SetQuestionCount 變更問卷選項數並寫入數量檔與問卷檔。
func (s *Session) SetQuestionCount(n int) error {
	if n < 1 {
		return invalid("question count", "must be an integer >= 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := Resize(s.questions, n, DefaultQuestion)
	if err := s.store.SaveCount(CountQuestions, n); err != nil {
		return fmt.Errorf("save question count: %w", err)
	}
	if err := s.store.SaveQuestions(questions); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	s.questions = questions
	s.keepSelections()
	s.log.Info("question count updated", zap.Int("count", n))
	return nil
}

// keepSelections 在清單變更後，將已不存在的選項改回第一項。
func (s *Session) keepSelections() {
	found := false
	for _, q := range s.quals {
		if q.Name == s.qualification {
			found = true
			break
		}
	}
	if !found {
		s.qualification = s.firstQualification()
	}

	found = false
	for _, q := range s.questions {
		if q.Label == s.answer {
			found = true
			break
		}
	}
	if !found {
		s.answer = s.firstAnswer()
	}
}

// ApplyItems 以表單輸入覆寫整份目錄，並追加一筆管理稽核紀錄。
// 任一列不合法時回傳 *ValidationError，不寫入任何檔案。
func (s *Session) ApplyItems(inputs []ItemInput) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(inputs) != len(s.items) {
		return nil, invalid("items", fmt.Sprintf("expected %d rows, got %d", len(s.items), len(inputs)))
	}
	items := make([]Item, len(inputs))
	entries := make([]string, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, invalid(fmt.Sprintf("item %d name", i+1), "must not be empty")
		}
		price, err := parseAmount(in.Price)
		if err != nil {
			return nil, invalid(fmt.Sprintf("item %d price", i+1), err.Error())
		}
		items[i] = Item{Name: name, Price: price}
		entries[i] = fmt.Sprintf("%s:%d", name, price)
	}

	if err := s.store.SaveItems(items); err != nil {
		return nil, fmt.Errorf("save items: %w", err)
	}
	s.items = items
	if err := s.ledger.AppendAudit(AuditManagement, s.audit(entries)); err != nil {
		return nil, fmt.Errorf("append management log: %w", err)
	}
	s.log.Info("catalog updated", zap.Strings("items", entries))
	return append([]Item(nil), items...), nil
}

// ApplyQualifications 以表單輸入覆寫整份資格清單，並追加一筆資格稽核紀錄。
func (s *Session) ApplyQualifications(inputs []QualificationInput) ([]Qualification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(inputs) != len(s.quals) {
		return nil, invalid("qualifications", fmt.Sprintf("expected %d rows, got %d", len(s.quals), len(inputs)))
	}
	quals := make([]Qualification, len(inputs))
	entries := make([]string, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, invalid(fmt.Sprintf("qualification %d name", i+1), "must not be empty")
		}
		discount, err := parseAmount(in.Discount)
		if err != nil {
			return nil, invalid(fmt.Sprintf("qualification %d discount", i+1), err.Error())
		}
		quals[i] = Qualification{Name: name, Discount: int(discount)}
		entries[i] = fmt.Sprintf("%s:%d%%", name, discount)
	}

	if err := s.store.SaveQualifications(quals); err != nil {
		return nil, fmt.Errorf("save qualifications: %w", err)
	}
	s.quals = quals
	s.keepSelections()
	if err := s.ledger.AppendAudit(AuditQualification, s.audit(entries)); err != nil {
		return nil, fmt.Errorf("append qualification log: %w", err)
	}
	s.log.Info("qualifications updated", zap.Strings("qualifications", entries))
	return append([]Qualification(nil), quals...), nil
}

// ApplyQuestions 覆寫問卷選項；每個選項都不可為空。
func (s *Session) ApplyQuestions(labels []string) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(labels) != len(s.questions) {
		return nil, invalid("questions", fmt.Sprintf("expected %d rows, got %d", len(s.questions), len(labels)))
	}
	questions := make([]Question, len(labels))
	for i, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, invalid(fmt.Sprintf("question %d", i+1), "must not be empty")
		}
		questions[i] = Question{Label: l}
	}
	if err := s.store.SaveQuestions(questions); err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}
	s.questions = questions
	s.keepSelections()
	s.log.Info("questions updated", zap.Int("count", len(questions)))
	return append([]Question(nil), questions...), nil
}

func (s *Session) audit(entries []string) AuditRecord {
	now := s.now()
	return AuditRecord{
		Date:    now.Format(AuditDateLayout),
		Time:    now.Format(AuditTimeLayout),
		Entries: entries,
	}
}

// Shop 回傳店舗名與お手紙文字。
func (s *Session) Shop() (name, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shopName, s.message
}

// SetShop 儲存店舗名與お手紙文字（去除前後空白）。
func (s *Session) SetShop(name, message string) error {
	name, message = strings.TrimSpace(name), strings.TrimSpace(message)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveText(TextShopName, name); err != nil {
		return fmt.Errorf("save shop name: %w", err)
	}
	if err := s.store.SaveText(TextMessage, message); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	s.shopName, s.message = name, message
	return nil
}

// BillText 回傳可複製的請求額文字。
func (s *Session) BillText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("請求額: %d円", s.totals().Final)
}

// Letter 回傳給顧客的お手紙文字。
func (s *Session) Letter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%sさん、%s", strings.TrimSpace(s.customer), s.message)
}

func (s *Session) ImageScale() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// SetImageScale 設定商品圖片倍率（>= 1）。
func (s *Session) SetImageScale(scale int) error {
	if scale < 1 {
		return invalid("image scale", "must be an integer >= 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveImageScale(scale); err != nil {
		return fmt.Errorf("save image scale: %w", err)
	}
	s.scale = scale
	return nil
}

// SetItemImage 儲存第 index 項商品的圖片。
func (s *Session) SetItemImage(index int, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return ErrIndexOutOfRange
	}
	return s.store.SaveImage(index, r)
}

// ItemImage 開啟第 index 項商品的圖片；呼叫端負責關閉。
func (s *Session) ItemImage(index int) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return nil, ErrIndexOutOfRange
	}
	return s.store.OpenImage(index)
}

func (s *Session) Transactions() ([]TransactionRecord, error) {
	return s.ledger.Transactions()
}

func (s *Session) Surveys() ([]SurveyRecord, error) {
	return s.ledger.Surveys()
}

// ParseCount 解析操作員輸入的數量欄位（>= 1 的十進位整數）。
func ParseCount(field, raw string) (int, error) {
	n, err := parseAmount(raw)
	if err != nil {
		return 0, invalid(field, err.Error())
	}
	if n < 1 {
		return 0, invalid(field, "must be an integer >= 1")
	}
	return int(n), nil
}

// parseAmount 僅接受由數字組成的非負十進位整數。
func parseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("must not be empty")
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q is not a non-negative integer", raw)
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is out of range", raw)
	}
	return n, nil
}
