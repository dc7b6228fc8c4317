package catalog

import (
	"strconv"
	"time"
)

// Site is a read-only snapshot of a construction site aggregate.
type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Amount    int64     `json:"amount"` // contract amount in yen
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Staff     []Staff   `json:"staff,omitempty"`
	Vehicles  []Vehicle `json:"vehicles,omitempty"`
	Company   *Company  `json:"company,omitempty"`
}

// Staff is a worker assigned to a site.
type Staff struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	Term   string `json:"term"`
}

// Vehicle is a vehicle registered to a site.
type Vehicle struct {
	ID    string `json:"id"`
	Plate string `json:"plate"`
	Term  string `json:"term"`
}

// Company is the contractor that owns a site.
type Company struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Representative       string           `json:"representative"`
	Address              string           `json:"address"`
	Phone                string           `json:"phone"`
	ConstructionLicenses []License        `json:"constructionLicenses,omitempty"`
	SocialInsurance      *SocialInsurance `json:"socialInsurance,omitempty"`
}

// License is a construction business license held by a company.
type License struct {
	Kind   string `json:"kind"`   // e.g. 一般, 特定
	Number string `json:"number"` // license number
	Trade  string `json:"trade"`  // licensed trade
}

// String formats the license on one line.
func (l License) String() string {
	s := l.Kind
	if l.Number != "" {
		if s != "" {
			s += " "
		}
		s += l.Number
	}
	if l.Trade != "" {
		if s != "" {
			s += " "
		}
		s += l.Trade
	}
	return s
}

// SocialInsurance records enrollment status for the three statutory schemes.
type SocialInsurance struct {
	Health     string `json:"health"`
	Pension    string `json:"pension"`
	Employment string `json:"employment"`
}

// staffByID returns the staff member whose entity key is id.
func (s *Site) staffByID(id string) (Staff, bool) {
	for i, key := range s.staffKeys() {
		if key == id {
			return s.Staff[i], true
		}
	}
	return Staff{}, false
}

// vehicleByID returns the vehicle whose entity key is id.
func (s *Site) vehicleByID(id string) (Vehicle, bool) {
	for i, key := range s.vehicleKeys() {
		if key == id {
			return s.Vehicles[i], true
		}
	}
	return Vehicle{}, false
}

func (s *Site) staffKeys() []string {
	ids := make([]string, len(s.Staff))
	for i, st := range s.Staff {
		ids[i] = st.ID
	}
	return entityKeys(prefixStaff, ids)
}

func (s *Site) vehicleKeys() []string {
	ids := make([]string, len(s.Vehicles))
	for i, v := range s.Vehicles {
		ids[i] = v.ID
	}
	return entityKeys(prefixVehicle, ids)
}

// entityKeys returns one unique key per entity. Entities without an id get
// the positional key {prefix}-{n}; repeated keys get a -2, -3... suffix in
// record order.
func entityKeys(prefix string, ids []string) []string {
	keys := make([]string, len(ids))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		key := id
		if key == "" {
			key = prefix + "-" + strconv.Itoa(i+1)
		}
		base := key
		for n := 2; seen[key]; n++ {
			key = base + "-" + strconv.Itoa(n)
		}
		seen[key] = true
		keys[i] = key
	}
	return keys
}
