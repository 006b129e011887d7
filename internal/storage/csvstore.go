// internal/storage/csvstore.go
//
// 設定檔的讀寫實作（register.Store）。
//
//   - 讀取：檔案不存在時以預設值建立並立即寫入（首次啟動不會失敗）。
//     以試算表軟體存檔產生的 UTF-8 BOM 會被略過。
//   - 寫入：先寫入 .tmp 暫存檔、fsync，再以 rename() 取代原檔，
//     寫入中斷時原檔不會損壞。
package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"pointsale/internal/register"
)

// Store 將設定保存在單一資料目錄下。
type Store struct {
	dir string
	log *zap.Logger
}

var _ register.Store = (*Store)(nil)

// NewStore 建立 Store；資料目錄不存在時會一併建立。
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir 回傳資料目錄。
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// LoadCount 讀取數量檔（單一數值）。
func (s *Store) LoadCount(kind register.CountKind) (int, error) {
	name, def, err := countFile(kind)
	if err != nil {
		return 0, err
	}
	rows, err := readCSV(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("creating default count file", zap.String("file", name), zap.Int("count", def))
		return def, s.SaveCount(kind, def)
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, fmt.Errorf("read %s: file is empty", name)
	}
	n, err := parseInt(rows[0][0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("read %s: invalid count %q", name, rows[0][0])
	}
	return int(n), nil
}

// SaveCount 覆寫數量檔。
func (s *Store) SaveCount(kind register.CountKind, n int) error {
	name, _, err := countFile(kind)
	if err != nil {
		return err
	}
	return writeCSV(s.path(name), [][]string{{cast.ToString(n)}})
}

// LoadItems 讀取商品檔並調整為 n 筆。
func (s *Store) LoadItems(n int) ([]register.Item, error) {
	rows, err := readCSV(s.path(FileItems))
	if errors.Is(err, fs.ErrNotExist) {
		items := register.Defaults(n, register.DefaultItem)
		s.log.Info("creating default items file", zap.Int("count", n))
		return items, s.SaveItems(items)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileItems, err)
	}
	records, err := readTable(rows, itemHeader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileItems, err)
	}
	items := make([]register.Item, 0, len(records))
	for i, rec := range records {
		price, err := parseInt(rec[1])
		if err != nil || price < 0 {
			return nil, fmt.Errorf("read %s: row %d: invalid price %q", FileItems, i+1, rec[1])
		}
		items = append(items, register.Item{Name: rec[0], Price: price})
	}
	return register.Resize(items, n, register.DefaultItem), nil
}

// SaveItems 覆寫商品檔（含表頭）。
func (s *Store) SaveItems(items []register.Item) error {
	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, itemHeader)
	for _, it := range items {
		rows = append(rows, []string{it.Name, cast.ToString(it.Price)})
	}
	return writeCSV(s.path(FileItems), rows)
}

// LoadQualifications 讀取資格檔並調整為 n 筆。
func (s *Store) LoadQualifications(n int) ([]register.Qualification, error) {
	rows, err := readCSV(s.path(FileQualifications))
	if errors.Is(err, fs.ErrNotExist) {
		quals := register.Defaults(n, register.DefaultQualification)
		s.log.Info("creating default qualifications file", zap.Int("count", n))
		return quals, s.SaveQualifications(quals)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileQualifications, err)
	}
	records, err := readTable(rows, qualificationHeader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileQualifications, err)
	}
	quals := make([]register.Qualification, 0, len(records))
	for i, rec := range records {
		discount, err := parseInt(rec[1])
		if err != nil || discount < 0 {
			return nil, fmt.Errorf("read %s: row %d: invalid discount %q", FileQualifications, i+1, rec[1])
		}
		quals = append(quals, register.Qualification{Name: rec[0], Discount: int(discount)})
	}
	return register.Resize(quals, n, register.DefaultQualification), nil
}

// SaveQualifications 覆寫資格檔（含表頭）。
func (s *Store) SaveQualifications(quals []register.Qualification) error {
	rows := make([][]string, 0, len(quals)+1)
	rows = append(rows, qualificationHeader)
	for _, q := range quals {
		rows = append(rows, []string{q.Name, cast.ToString(q.Discount)})
	}
	return writeCSV(s.path(FileQualifications), rows)
}

// LoadQuestions 讀取問卷選項檔（每列一個選項，無表頭）並調整為 n 筆。
func (s *Store) LoadQuestions(n int) ([]register.Question, error) {
	rows, err := readCSV(s.path(FileQuestions))
	if errors.Is(err, fs.ErrNotExist) {
		questions := register.Defaults(n, register.DefaultQuestion)
		s.log.Info("creating default questions file", zap.Int("count", n))
		return questions, s.SaveQuestions(questions)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileQuestions, err)
	}
	questions := make([]register.Question, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		questions = append(questions, register.Question{Label: row[0]})
	}
	return register.Resize(questions, n, register.DefaultQuestion), nil
}

// SaveQuestions 覆寫問卷選項檔。
func (s *Store) SaveQuestions(questions []register.Question) error {
	rows := make([][]string, len(questions))
	for i, q := range questions {
		rows[i] = []string{q.Label}
	}
	return writeCSV(s.path(FileQuestions), rows)
}

// LoadText 讀取自由文字設定；檔案不存在時回傳空字串（不建立檔案）。
func (s *Store) LoadText(key register.TextKey) (string, error) {
	name, err := textFile(key)
	if err != nil {
		return "", err
	}
	b, err := readFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// SaveText 覆寫自由文字設定。
func (s *Store) SaveText(key register.TextKey, value string) error {
	name, err := textFile(key)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path(name), []byte(value))
}

// LoadImageScale 讀取圖片倍率；不存在時建立預設值 1。
func (s *Store) LoadImageScale() (int, error) {
	b, err := readFile(s.path(FileImageScale))
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("creating default image scale file", zap.Int("scale", register.DefaultImageScale))
		return register.DefaultImageScale, s.SaveImageScale(register.DefaultImageScale)
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", FileImageScale, err)
	}
	n, err := parseInt(string(b))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("read %s: invalid scale %q", FileImageScale, strings.TrimSpace(string(b)))
	}
	return int(n), nil
}

// SaveImageScale 覆寫圖片倍率。
func (s *Store) SaveImageScale(scale int) error {
	return writeFileAtomic(s.path(FileImageScale), []byte(cast.ToString(scale)))
}

// ─────────────────────────────
// 檔案層共用函式
// ─────────────────────────────

// bomReader 包裝 r，略過開頭的 UTF-8 BOM。
func bomReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(bomReader(f))
}

// readCSV 讀取整個 CSV 檔；各列欄位數可不同。
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(bomReader(f))
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// readTable 依表頭名稱找出欄位，回傳依 want 順序排列的資料列（不含表頭）。
// 空檔案視為沒有資料列。
func readTable(rows [][]string, want []string) ([][]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	idx := make([]int, len(want))
	for i, col := range want {
		idx[i] = -1
		for j, h := range rows[0] {
			if strings.TrimSpace(h) == col {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, fmt.Errorf("missing column %q in header %v", col, rows[0])
		}
	}
	out := make([][]string, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec := make([]string, len(want))
		for i, j := range idx {
			if j >= len(row) {
				return nil, fmt.Errorf("row %d: missing column %q", n+1, want[i])
			}
			rec[i] = row[j]
		}
		out = append(out, rec)
	}
	return out, nil
}

func encodeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(path string, rows [][]string) error {
	data, err := encodeCSV(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic 先寫 path+".tmp"，fsync 後 rename 取代原檔。
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
