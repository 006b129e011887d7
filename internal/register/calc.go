// internal/register/calc.go
//
// 金額計算為純函式：每次都對整份清單重新計算，不做快取。
package register

// Totals 為畫面上顯示的三個金額。
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Final    int64 `json:"final"`
}

// Compute 依數量與商品單價（以索引配對）計算小計、折扣與請求額。
// 折扣百分比會被限制在 0–100 之間，因此 Final 不會為負。
// 折扣以整數除法捨去小數。
func Compute(quantities []int, items []Item, discountPercent int) Totals {
	var subtotal int64
	n := min(len(quantities), len(items))
	for i := 0; i < n; i++ {
		subtotal += int64(quantities[i]) * items[i].Price
	}

	pct := int64(max(0, min(discountPercent, 100)))
	discount := subtotal * pct / 100
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Final:    subtotal - discount,
	}
}

// DiscountFor 回傳名稱相符的第一個資格的折扣百分比；
// 未選擇或查無此名稱時回傳 0。
func DiscountFor(quals []Qualification, name string) int {
	if name == "" {
		return 0
	}
	for _, q := range quals {
		if q.Name == name {
			return q.Discount
		}
	}
	return 0
}
