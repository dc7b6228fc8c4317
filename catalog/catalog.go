// Package catalog derives the flat list of placeable fields from a site
// record and resolves placed field ids back to live values.
//
// Field ids are namespaced as {prefix}_{entityId}_{attribute} for repeated
// sub-entities (staff, vehicles) and {prefix}_{attribute} for scalars, so a
// placed item only stores the reference and always displays the current
// value of the record it is rendered against.
package catalog

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Group names.
const (
	GroupBasic   = "基本情報"
	GroupCompany = "会社情報"
)

// Id prefixes.
const (
	prefixSite    = "s"
	prefixStaff   = "staff"
	prefixVehicle = "vehicle"
	prefixCompany = "c"
)

// Field is a placeable, labelled reference to a business-data attribute.
type Field struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
	Group string `json:"group"`
}

// Builder formats site records into catalog fields.
// The zero value is not usable; construct one with NewBuilder.
type Builder struct {
	printer    *message.Printer
	dateLayout string
	amountFmt  string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLocale sets the locale used for number grouping.
func WithLocale(tag language.Tag) BuilderOption {
	return func(b *Builder) {
		b.printer = message.NewPrinter(tag)
	}
}

// WithDateLayout sets the time layout used for start and end dates.
func WithDateLayout(layout string) BuilderOption {
	return func(b *Builder) {
		b.dateLayout = layout
	}
}

// WithAmountFormat sets the printf format used for the contract amount.
// It receives the amount as an int64.
func WithAmountFormat(format string) BuilderOption {
	return func(b *Builder) {
		b.amountFmt = format
	}
}

// NewBuilder returns a Builder using Japanese defaults unless overridden.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		printer:    message.NewPrinter(language.Japanese),
		dateLayout: "2006年1月2日",
		amountFmt:  "%d円",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var defaultBuilder = NewBuilder()

// Build returns the catalog for site using the default builder.
func Build(site *Site) []Field {
	return defaultBuilder.Build(site)
}

// ResolveValue returns the current value of id in site using the default builder.
func ResolveValue(id string, site *Site) (string, bool) {
	return defaultBuilder.ResolveValue(id, site)
}

type siteAttr struct {
	name  string
	label string
	value func(b *Builder, s *Site) string
}

type staffAttr struct {
	name  string
	label string
	value func(st Staff) string
}

type vehicleAttr struct {
	name  string
	label string
	value func(v Vehicle) string
}

type companyAttr struct {
	name  string
	label string
	value func(c *Company) string
}

var siteAttrs = []siteAttr{
	{"name", "現場名", func(_ *Builder, s *Site) string { return s.Name }},
	{"address", "現場住所", func(_ *Builder, s *Site) string { return s.Address }},
	{"amount", "請負金額", func(b *Builder, s *Site) string { return b.printer.Sprintf(b.amountFmt, s.Amount) }},
	{"start", "工期開始", func(b *Builder, s *Site) string { return b.formatDate(s.StartDate) }},
	{"end", "工期終了", func(b *Builder, s *Site) string { return b.formatDate(s.EndDate) }},
}

var staffAttrs = []staffAttr{
	{"name", "氏名", func(st Staff) string { return st.Name }},
	{"age", "年齢", func(st Staff) string {
		if st.Age <= 0 {
			return ""
		}
		return strconv.Itoa(st.Age)
	}},
	{"gender", "性別", func(st Staff) string { return st.Gender }},
	{"term", "期間", func(st Staff) string { return st.Term }},
}

var vehicleAttrs = []vehicleAttr{
	{"plate", "車両番号", func(v Vehicle) string { return v.Plate }},
	{"term", "期間", func(v Vehicle) string { return v.Term }},
}

var companyAttrs = []companyAttr{
	{"name", "会社名", func(c *Company) string { return c.Name }},
	{"representative", "代表者", func(c *Company) string { return c.Representative }},
	{"address", "会社住所", func(c *Company) string { return c.Address }},
	{"phone", "電話番号", func(c *Company) string { return c.Phone }},
}

var insuranceAttrs = []struct {
	name  string
	label string
	value func(si *SocialInsurance) string
}{
	{"health", "健康保険", func(si *SocialInsurance) string { return si.Health }},
	{"pension", "厚生年金保険", func(si *SocialInsurance) string { return si.Pension }},
	{"employment", "雇用保険", func(si *SocialInsurance) string { return si.Employment }},
}

// Build returns the catalog for site. The output is fully determined by the
// record: basic fields first, then staff and vehicles in record order, then
// company fields when a company is attached.
func (b *Builder) Build(site *Site) []Field {
	if site == nil {
		return nil
	}

	fields := make([]Field, 0, len(siteAttrs)+len(site.Staff)*len(staffAttrs)+len(site.Vehicles)*len(vehicleAttrs))
	for _, a := range siteAttrs {
		fields = append(fields, Field{
			ID:    prefixSite + "_" + a.name,
			Label: a.label,
			Value: a.value(b, site),
			Group: GroupBasic,
		})
	}

	staffKeys := site.staffKeys()
	for i, st := range site.Staff {
		group := staffGroup(i, st)
		for _, a := range staffAttrs {
			fields = append(fields, Field{
				ID:    entityID(prefixStaff, staffKeys[i], a.name),
				Label: st.Name + " " + a.label,
				Value: a.value(st),
				Group: group,
			})
		}
	}

	vehicleKeys := site.vehicleKeys()
	for i, v := range site.Vehicles {
		group := vehicleGroup(i, v)
		for _, a := range vehicleAttrs {
			fields = append(fields, Field{
				ID:    entityID(prefixVehicle, vehicleKeys[i], a.name),
				Label: group + " " + a.label,
				Value: a.value(v),
				Group: group,
			})
		}
	}

	if c := site.Company; c != nil {
		for _, a := range companyAttrs {
			fields = append(fields, Field{
				ID:    prefixCompany + "_" + a.name,
				Label: a.label,
				Value: a.value(c),
				Group: GroupCompany,
			})
		}
		for i, l := range c.ConstructionLicenses {
			fields = append(fields, Field{
				ID:    prefixCompany + "_license_" + strconv.Itoa(i),
				Label: "建設業許可 " + strconv.Itoa(i+1),
				Value: l.String(),
				Group: GroupCompany,
			})
		}
		if si := c.SocialInsurance; si != nil {
			for _, a := range insuranceAttrs {
				fields = append(fields, Field{
					ID:    prefixCompany + "_insurance_" + a.name,
					Label: a.label,
					Value: a.value(si),
					Group: GroupCompany,
				})
			}
		}
	}

	return fields
}

// ResolveValue parses id and returns the matching value from site. The
// boolean is false when the id is malformed or refers to an entity or
// attribute that no longer exists.
func (b *Builder) ResolveValue(id string, site *Site) (string, bool) {
	if site == nil {
		return "", false
	}
	prefix, rest, ok := strings.Cut(id, "_")
	if !ok || rest == "" {
		return "", false
	}

	switch prefix {
	case prefixSite:
		for _, a := range siteAttrs {
			if a.name == rest {
				return a.value(b, site), true
			}
		}
	case prefixStaff:
		entity, attr, ok := splitEntity(rest)
		if !ok {
			return "", false
		}
		st, found := site.staffByID(entity)
		if !found {
			return "", false
		}
		for _, a := range staffAttrs {
			if a.name == attr {
				return a.value(st), true
			}
		}
	case prefixVehicle:
		entity, attr, ok := splitEntity(rest)
		if !ok {
			return "", false
		}
		v, found := site.vehicleByID(entity)
		if !found {
			return "", false
		}
		for _, a := range vehicleAttrs {
			if a.name == attr {
				return a.value(v), true
			}
		}
	case prefixCompany:
		return b.resolveCompany(rest, site.Company)
	}
	return "", false
}

func (b *Builder) resolveCompany(rest string, c *Company) (string, bool) {
	if c == nil {
		return "", false
	}
	if idx, ok := strings.CutPrefix(rest, "license_"); ok {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(c.ConstructionLicenses) {
			return "", false
		}
		return c.ConstructionLicenses[i].String(), true
	}
	if kind, ok := strings.CutPrefix(rest, "insurance_"); ok {
		if c.SocialInsurance == nil {
			return "", false
		}
		for _, a := range insuranceAttrs {
			if a.name == kind {
				return a.value(c.SocialInsurance), true
			}
		}
		return "", false
	}
	for _, a := range companyAttrs {
		if a.name == rest {
			return a.value(c), true
		}
	}
	return "", false
}

func (b *Builder) formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(b.dateLayout)
}

// entityID builds {prefix}_{entityId}_{attribute}.
func entityID(prefix, entity, attr string) string {
	return prefix + "_" + entity + "_" + attr
}

// splitEntity splits {entityId}_{attribute}. Entity ids may themselves
// contain underscores; the attribute never does.
func splitEntity(s string) (entity, attr string, ok bool) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func staffGroup(i int, st Staff) string {
	if st.Name != "" {
		return "作業員: " + st.Name
	}
	return "作業員 " + strconv.Itoa(i+1)
}

func vehicleGroup(i int, v Vehicle) string {
	if v.Plate != "" {
		return "車両: " + v.Plate
	}
	return "車両 " + strconv.Itoa(i+1)
}

// Lookup returns the field with the given id.
func Lookup(fields []Field, id string) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Groups returns the distinct group names of fields in first-seen order.
func Groups(fields []Field) []string {
	var groups []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if !seen[f.Group] {
			seen[f.Group] = true
			groups = append(groups, f.Group)
		}
	}
	return groups
}

// SiteResolver resolves field ids against a site snapshot.
type SiteResolver struct {
	Builder *Builder
	Site    *Site
}

// NewResolver returns a resolver for site using b, or the default builder
// when b is nil.
func NewResolver(site *Site, b *Builder) SiteResolver {
	if b == nil {
		b = defaultBuilder
	}
	return SiteResolver{Builder: b, Site: site}
}

// ResolveValue returns the current value of id.
func (r SiteResolver) ResolveValue(id string) (string, bool) {
	b := r.Builder
	if b == nil {
		b = defaultBuilder
	}
	return b.ResolveValue(id, r.Site)
}
