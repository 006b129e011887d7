// internal/register/session_test.go
//
// Session 的單元測試：結帳、復原、清除、數量調整與設定套用。
// 全部使用記憶體版 Store / Ledger（fakes_test.go）。

package register

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openSession 建立以 Widget/Gadget、None/Member 為設定的 Session。
func openSession(t *testing.T) (*Session, *memStore, *memLedger) {
	t.Helper()
	store := newMemStore()
	store.counts[CountItems] = 2
	store.counts[CountQualifications] = 2
	store.items = []Item{{"Widget", 100}, {"Gadget", 250}}
	store.quals = []Qualification{{"None", 0}, {"Member", 20}}
	ledger := newMemLedger()

	ids := 0
	s, err := Open(store, ledger,
		WithClock(fixedClock),
		WithIDGenerator(func() string {
			ids++
			return strings.Repeat("0", 7) + string(rune('0'+ids))
		}))
	require.NoError(t, err)
	return s, store, ledger
}

func TestOpenUsesDefaultsAndFirstSelections(t *testing.T) {
	s, err := Open(newMemStore(), newMemLedger())
	require.NoError(t, err)

	st := s.State()
	assert.Len(t, st.Items, DefaultItemCount)
	assert.Len(t, st.Quantities, DefaultItemCount)
	assert.Len(t, st.Qualifications, DefaultQualificationCount)
	assert.Len(t, st.Questions, DefaultQuestionCount)
	assert.Equal(t, "資格 1", st.Qualification)
	assert.Equal(t, "未回答", st.Answer)
	assert.Equal(t, DefaultImageScale, st.ImageScale)
	assert.Equal(t, Totals{}, st.Totals)
}

func TestAdjustClampsAtZero(t *testing.T) {
	s, _, _ := openSession(t)

	n, err := s.Adjust(0, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = s.Adjust(0, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = s.Adjust(2, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, s.ClearCount(-1), ErrIndexOutOfRange)
}

// 每次數量或資格變更後，金額都重新計算。
func TestTotalsFollowEdits(t *testing.T) {
	s, _, _ := openSession(t)
	_, _ = s.Adjust(0, 3)
	_, _ = s.Adjust(1, 1)
	assert.Equal(t, Totals{Subtotal: 550, Final: 550}, s.Totals())

	s.SelectQualification("Member")
	assert.Equal(t, Totals{Subtotal: 550, Discount: 110, Final: 440}, s.Totals())
	assert.Equal(t, "請求額: 440円", s.BillText())

	require.NoError(t, s.ClearCount(0))
	assert.Equal(t, int64(200), s.Totals().Final)

	s.SelectQualification("Unknown")
	assert.Equal(t, int64(250), s.Totals().Final)
}

// 顧客名為空時回傳 ValidationError，兩個紀錄檔皆無寫入。
func TestCommitRequiresName(t *testing.T) {
	s, _, ledger := openSession(t)
	_, _ = s.Adjust(0, 1)
	s.SetCustomer("   ")

	_, _, err := s.Commit()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
	assert.Empty(t, ledger.txs)
	assert.Empty(t, ledger.svs)
	assert.Equal(t, []int{1, 0}, s.State().Quantities, "state must be untouched")
}

func TestCommitWritesPairAndResets(t *testing.T) {
	s, _, ledger := openSession(t)
	_, _ = s.Adjust(0, 3)
	_, _ = s.Adjust(1, 1)
	s.SetCustomer(" Alice ")
	s.SetRemarks("thanks")
	s.SelectQualification("Member")
	s.SelectAnswer("回答1")

	tx, sv, err := s.Commit()
	require.NoError(t, err)

	assert.Equal(t, TransactionRecord{
		ID: "00000001", Date: "08-27", Time: "14:05",
		Name: "Alice", Qualification: "Member", Total: 440, Quantities: []int{3, 1},
	}, tx)
	assert.Equal(t, SurveyRecord{
		ID: "00000001", Date: "08-27", Time: "14:05",
		Name: "Alice", Qualification: "Member", Answer: "回答1", Remarks: "thanks",
	}, sv)
	require.Len(t, ledger.txs, 1)
	require.Len(t, ledger.svs, 1)

	st := s.State()
	assert.Equal(t, []int{0, 0}, st.Quantities)
	assert.Empty(t, st.Customer)
	assert.Empty(t, st.Remarks)
	assert.Equal(t, "None", st.Qualification)
	assert.Equal(t, "未回答", st.Answer)
}

// 紀錄寫入失敗時回報錯誤，暫存狀態保留（操作員可重試）。
func TestCommitFailureKeepsState(t *testing.T) {
	s, _, ledger := openSession(t)
	ledger.appendErr = errDiskFull
	_, _ = s.Adjust(1, 2)
	s.SetCustomer("Bob")

	_, _, err := s.Commit()
	require.ErrorIs(t, err, errDiskFull)
	assert.False(t, IsValidation(err))

	st := s.State()
	assert.Equal(t, "Bob", st.Customer)
	assert.Equal(t, []int{0, 2}, st.Quantities)
}

func TestRestoreLastSale(t *testing.T) {
	s, _, ledger := openSession(t)
	ledger.txs = []TransactionRecord{{Name: "Alice", Qualification: "Member", Quantities: []int{2, 0}}}
	ledger.svs = []SurveyRecord{{Name: "Alice", Qualification: "Member", Answer: "回答1", Remarks: "thanks"}}

	_, _ = s.Adjust(1, 9)
	s.SetCustomer("someone else")
	require.NoError(t, s.Restore())

	st := s.State()
	assert.Equal(t, "Alice", st.Customer)
	assert.Equal(t, "Member", st.Qualification)
	assert.Equal(t, "回答1", st.Answer)
	assert.Equal(t, "thanks", st.Remarks)
	assert.Equal(t, []int{2, 0}, st.Quantities)
	assert.Len(t, ledger.txs, 1, "restore must not touch the logs")
	assert.Len(t, ledger.svs, 1)
}

// 紀錄中的數量比目前商品數多或少時，截斷或補 0。
func TestRestoreAdaptsToCatalogSize(t *testing.T) {
	s, _, ledger := openSession(t)
	ledger.txs = []TransactionRecord{{Name: "A", Quantities: []int{1, 2, 3}}}
	ledger.svs = []SurveyRecord{{Name: "A"}}
	require.NoError(t, s.Restore())
	assert.Equal(t, []int{1, 2}, s.State().Quantities)

	ledger.txs = []TransactionRecord{{Name: "A", Quantities: []int{4}}}
	require.NoError(t, s.Restore())
	assert.Equal(t, []int{4, 0}, s.State().Quantities)
}

func TestRestoreEmptyHistory(t *testing.T) {
	s, _, _ := openSession(t)
	_, _ = s.Adjust(0, 1)
	s.SetCustomer("Carol")

	require.ErrorIs(t, s.Restore(), ErrEmptyHistory)
	assert.Equal(t, "Carol", s.State().Customer, "no state change on failure")
	assert.Equal(t, []int{1, 0}, s.State().Quantities)
}

func TestClearResetsTransientState(t *testing.T) {
	s, _, _ := openSession(t)
	_, _ = s.Adjust(0, 4)
	s.SetCustomer("Dan")
	s.SetRemarks("memo")
	s.SelectQualification("Member")
	s.SelectAnswer("回答2")

	s.Clear()
	st := s.State()
	assert.Equal(t, []int{0, 0}, st.Quantities)
	assert.Empty(t, st.Customer)
	assert.Empty(t, st.Remarks)
	assert.Equal(t, "None", st.Qualification)
	assert.Equal(t, "未回答", st.Answer)
}

// 商品數變更：保留既有數量、新項目補 0；縮小時截斷。
func TestSetItemCountResizesCatalogAndCounters(t *testing.T) {
	s, store, _ := openSession(t)
	_, _ = s.Adjust(0, 2)
	_, _ = s.Adjust(1, 3)

	require.NoError(t, s.SetItemCount(4))
	st := s.State()
	assert.Equal(t, []int{2, 3, 0, 0}, st.Quantities)
	assert.Equal(t, Item{"品3", DefaultItemPrice}, st.Items[2])
	assert.Equal(t, 4, store.counts[CountItems])
	assert.Len(t, store.items, 4)

	require.NoError(t, s.SetItemCount(1))
	st = s.State()
	assert.Equal(t, []int{2}, st.Quantities)
	assert.Equal(t, []Item{{"Widget", 100}}, st.Items)
}

func TestSetCountsRejectNonPositive(t *testing.T) {
	s, store, _ := openSession(t)
	assert.True(t, IsValidation(s.SetItemCount(0)))
	assert.True(t, IsValidation(s.SetQualificationCount(-1)))
	assert.True(t, IsValidation(s.SetQuestionCount(0)))
	assert.True(t, IsValidation(s.SetImageScale(0)))
	assert.Zero(t, store.saves)
}

func TestSetItemCountSaveFailureKeepsCatalog(t *testing.T) {
	s, store, _ := openSession(t)
	store.saveErr = errDiskFull

	err := s.SetItemCount(5)
	require.ErrorIs(t, err, errDiskFull)
	assert.Len(t, s.Catalog(), 2)
}

// 資格數縮小使所選資格消失時，改回第一項。
func TestSetQualificationCountResetsMissingSelection(t *testing.T) {
	s, _, _ := openSession(t)
	s.SelectQualification("Member")
	require.NoError(t, s.SetQualificationCount(1))
	assert.Equal(t, "None", s.State().Qualification)

	require.NoError(t, s.SetQualificationCount(3))
	assert.Equal(t, []Qualification{{"None", 0}, {"資格 2", 0}, {"資格 3", 0}}, s.Qualifications())
}

func TestSetQuestionCount(t *testing.T) {
	s, store, _ := openSession(t)
	s.SelectAnswer("回答2")
	require.NoError(t, s.SetQuestionCount(4))
	assert.Equal(t, Question{"質問 4"}, s.Questions()[3])
	assert.Equal(t, "回答2", s.State().Answer)

	require.NoError(t, s.SetQuestionCount(2))
	assert.Equal(t, "未回答", s.State().Answer)
	assert.Equal(t, 2, store.counts[CountQuestions])
}

func TestApplyItemsValidatesAndAudits(t *testing.T) {
	s, store, ledger := openSession(t)

	_, err := s.ApplyItems([]ItemInput{{"Widget", "100"}, {"Gadget", "abc"}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "item 2 price", ve.Field)

	_, err = s.ApplyItems([]ItemInput{{"", "100"}, {"Gadget", "1"}})
	require.True(t, IsValidation(err))

	_, err = s.ApplyItems([]ItemInput{{"Widget", "-1"}, {"Gadget", "1"}})
	require.True(t, IsValidation(err))

	_, err = s.ApplyItems([]ItemInput{{"only one", "1"}})
	require.True(t, IsValidation(err))

	assert.Zero(t, store.saves, "no write on validation failure")
	assert.Empty(t, ledger.audits[AuditManagement])

	items, err := s.ApplyItems([]ItemInput{{" Tea ", "300"}, {"Cake", "0450"}})
	require.NoError(t, err)
	assert.Equal(t, []Item{{"Tea", 300}, {"Cake", 450}}, items)
	assert.Equal(t, items, store.items)
	require.Len(t, ledger.audits[AuditManagement], 1)
	audit := ledger.audits[AuditManagement][0]
	assert.Equal(t, "24-08-27", audit.Date)
	assert.Equal(t, "14:05:09", audit.Time)
	assert.Equal(t, []string{"Tea:300", "Cake:450"}, audit.Entries)
}

func TestApplyQualificationsAudits(t *testing.T) {
	s, store, ledger := openSession(t)
	s.SelectQualification("Member")

	_, err := s.ApplyQualifications([]QualificationInput{{"None", "0"}, {"Member", "2.5"}})
	require.True(t, IsValidation(err))

	quals, err := s.ApplyQualifications([]QualificationInput{{"一般", "0"}, {"Member", "15"}})
	require.NoError(t, err)
	assert.Equal(t, []Qualification{{"一般", 0}, {"Member", 15}}, quals)
	assert.Equal(t, quals, store.quals)
	assert.Equal(t, "Member", s.State().Qualification)
	require.Len(t, ledger.audits[AuditQualification], 1)
	assert.Equal(t, []string{"一般:0%", "Member:15%"}, ledger.audits[AuditQualification][0].Entries)
}

func TestApplyQuestionsRequiresLabels(t *testing.T) {
	s, store, _ := openSession(t)
	_, err := s.ApplyQuestions([]string{"未回答", "", "回答2"})
	require.True(t, IsValidation(err))

	got, err := s.ApplyQuestions([]string{"未回答", "SNS", "友人"})
	require.NoError(t, err)
	assert.Equal(t, []Question{{"未回答"}, {"SNS"}, {"友人"}}, got)
	assert.Equal(t, got, store.questions)
}

func TestShopAndLetter(t *testing.T) {
	s, store, _ := openSession(t)
	require.NoError(t, s.SetShop(" 紫波商店 ", " またのお越しを "))
	name, msg := s.Shop()
	assert.Equal(t, "紫波商店", name)
	assert.Equal(t, "またのお越しを", msg)
	assert.Equal(t, "紫波商店", store.texts[TextShopName])

	s.SetCustomer("Alice")
	assert.Equal(t, "Aliceさん、またのお越しを", s.Letter())
}

func TestItemImageIndexChecked(t *testing.T) {
	s, _, _ := openSession(t)
	assert.ErrorIs(t, s.SetItemImage(5, strings.NewReader("x")), ErrIndexOutOfRange)

	_, err := s.ItemImage(0)
	assert.ErrorIs(t, err, ErrNoImage)

	require.NoError(t, s.SetItemImage(1, strings.NewReader("png")))
	rc, err := s.ItemImage(1)
	require.NoError(t, err)
	rc.Close()
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount("count", " 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	for _, raw := range []string{"", "0", "-3", "1.5", "abc", "99999999999999999999"} {
		_, err := ParseCount("count", raw)
		assert.True(t, IsValidation(err), "raw=%q", raw)
	}
}

// 多個 goroutine 同時調整數量，結果仍一致（HTTP adapter 會並行呼叫）。
func TestConcurrentAdjust(t *testing.T) {
	s, _, _ := openSession(t)

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := s.Adjust(0, 1); err != nil {
				t.Errorf("adjust: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, workers, s.State().Quantities[0])
}

func TestValidationErrorMessage(t *testing.T) {
	err := invalid("name", "customer name is required")
	assert.EqualError(t, err, "invalid name: customer name is required")
	assert.False(t, errors.Is(err, ErrEmptyHistory))
}
