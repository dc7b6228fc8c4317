package autoplace

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docplace/catalog"
)

func TestContextText(t *testing.T) {
	site := &catalog.Site{
		Name:      "本社ビル新築工事",
		Address:   "東京都港区1-2-3",
		Amount:    12345678,
		StartDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Staff:     []catalog.Staff{{ID: "1", Name: "山田太郎"}, {ID: "2", Name: "佐藤花子"}},
		Vehicles:  []catalog.Vehicle{{ID: "v1", Plate: "品川 500 あ 12-34"}},
		Company:   &catalog.Company{Name: "山田建設", Representative: "山田一郎"},
	}

	text := ContextText(site)
	assert.Contains(t, text, "site: 本社ビル新築工事")
	assert.Contains(t, text, "amount: 12,345,678円")
	assert.Contains(t, text, "period: 2024年4月1日 - 2025年3月31日")
	assert.Contains(t, text, "staff: 山田太郎, 佐藤花子")
	assert.Contains(t, text, "vehicles: 品川 500 あ 12-34")
	assert.Contains(t, text, "company: 山田建設")
	assert.NotContains(t, text, "\n\n")

	assert.Empty(t, ContextText(nil))
	assert.Equal(t, "site: x\namount: 0円", ContextText(&catalog.Site{Name: "x"}))
}

func TestMatchLabels(t *testing.T) {
	fields := []catalog.Field{
		{ID: "s_name", Label: "現場名"},
		{ID: "s_address", Label: "現場住所"},
		{ID: "c_phone", Label: "電話番号"},
		{ID: "x", Label: "a"},
	}
	boxes := []TextBox{
		{Rect: image.Rect(100, 200, 180, 230), Text: "現場 名：", Confidence: 0.9},
		{Rect: image.Rect(100, 300, 220, 330), Text: "現場住所", Confidence: 0.8},
		{Rect: image.Rect(10, 10, 20, 20), Text: "a", Confidence: 0.8},
	}

	got := matchLabels(fields, boxes, 2, 8)
	require.Len(t, got, 2)
	assert.Equal(t, "s_name", got[0].ComponentID)
	assert.Equal(t, 188.0, got[0].ImageX)
	assert.Equal(t, 200.0, got[0].ImageY)
	assert.Equal(t, 2, *got[0].PageIndex)
	assert.Equal(t, "s_address", got[1].ComponentID)
	assert.Equal(t, 0.8, got[1].Confidence)
}
