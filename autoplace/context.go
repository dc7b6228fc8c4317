package autoplace

import (
	"strings"

	"github.com/lvillar/docplace/catalog"
)

// ContextText summarizes site as plain text for the detector.
func ContextText(site *catalog.Site) string {
	if site == nil {
		return ""
	}
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	fields := catalog.Build(site)
	value := func(id string) string {
		f, _ := catalog.Lookup(fields, id)
		return f.Value
	}
	line("site", site.Name)
	line("address", site.Address)
	line("amount", value("s_amount"))
	line("period", strings.Trim(value("s_start")+" - "+value("s_end"), " -"))
	if c := site.Company; c != nil {
		line("company", c.Name)
		line("representative", c.Representative)
	}
	if n := len(site.Staff); n > 0 {
		names := make([]string, 0, n)
		for _, st := range site.Staff {
			names = append(names, st.Name)
		}
		line("staff", strings.Join(names, ", "))
	}
	if n := len(site.Vehicles); n > 0 {
		plates := make([]string, 0, n)
		for _, v := range site.Vehicles {
			plates = append(plates, v.Plate)
		}
		line("vehicles", strings.Join(plates, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
