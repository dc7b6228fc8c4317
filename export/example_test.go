package export_test

import (
	"fmt"

	"github.com/lvillar/docplace/export"
)

func ExampleFileName() {
	fmt.Println(export.FileName("現場 日報 2024/04"))
	fmt.Println(export.FileName("!!"))
	// Output:
	// 現場日報202404.pdf
	// document.pdf
}
