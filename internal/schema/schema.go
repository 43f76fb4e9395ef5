// Package schema defines the traffic_stops table contract shared by the
// normalizer, the provisioner, the loader and the report catalogue.
package schema

import "regexp"

// DefaultTable is the table the ingestion replaces and the reports read.
const DefaultTable = "traffic_stops"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// ValidTable reports whether name is a lowercase, optionally schema-qualified
// identifier. Generated SQL uses table names unquoted, so only names that
// read the same quoted and unquoted are accepted.
func ValidTable(name string) bool {
	return tableName.MatchString(name)
}

// Sentinels substituted for missing values.
const (
	UnknownCategory       = "Unknown"
	MissingInt      int64 = -1
	MissingBool           = false
)

// Column names of the traffic_stops table.
const (
	StopDate         = "stop_date"
	StopTime         = "stop_time"
	CountryName      = "country_name"
	DriverGender     = "driver_gender"
	DriverAgeRaw     = "driver_age_raw"
	DriverAge        = "driver_age"
	DriverRace       = "driver_race"
	ViolationRaw     = "violation_raw"
	Violation        = "violation"
	SearchConducted  = "search_conducted"
	SearchType       = "search_type"
	StopOutcome      = "stop_outcome"
	IsArrested       = "is_arrested"
	StopDuration     = "stop_duration"
	DrugsRelatedStop = "drugs_related_stop"
	VehicleNumber    = "vehicle_number"
)

// Kind classifies how a column is cleaned and stored.
type Kind int

const (
	KindDate     Kind = iota + 1 // calendar date, rows failing to parse are dropped
	KindText                     // free-form text, no sentinel
	KindCategory                 // categorical text, missing -> "Unknown"
	KindInt                      // integer, missing -> -1
	KindBool                     // boolean, missing -> false
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindText:
		return "text"
	case KindCategory:
		return "category"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Column describes one column of the persisted table.
type Column struct {
	Name    string
	Kind    Kind
	Width   int  // VARCHAR width for text kinds, zero is unbounded
	Indexed bool // engine-native index declared at provisioning time
}

// Sentinel returns the value substituted for a missing cell, or nil when the
// column has no sentinel.
func (c Column) Sentinel() any {
	switch c.Kind {
	case KindCategory:
		return UnknownCategory
	case KindInt:
		return MissingInt
	case KindBool:
		return MissingBool
	default:
		return nil
	}
}

// Columns is the table layout in storage order.
var Columns = []Column{
	{Name: StopDate, Kind: KindDate, Indexed: true},
	{Name: StopTime, Kind: KindText},
	{Name: CountryName, Kind: KindCategory, Width: 255, Indexed: true},
	{Name: DriverGender, Kind: KindCategory, Width: 255, Indexed: true},
	{Name: DriverAgeRaw, Kind: KindInt},
	{Name: DriverAge, Kind: KindInt, Indexed: true},
	{Name: DriverRace, Kind: KindCategory, Width: 255, Indexed: true},
	{Name: ViolationRaw, Kind: KindCategory, Width: 255},
	{Name: Violation, Kind: KindCategory, Width: 255, Indexed: true},
	{Name: SearchConducted, Kind: KindBool},
	{Name: SearchType, Kind: KindCategory, Width: 255},
	{Name: StopOutcome, Kind: KindCategory, Width: 50},
	{Name: IsArrested, Kind: KindBool, Indexed: true},
	{Name: StopDuration, Kind: KindCategory, Width: 50},
	{Name: DrugsRelatedStop, Kind: KindBool, Indexed: true},
	{Name: VehicleNumber, Kind: KindCategory, Width: 255, Indexed: true},
}

var byName = func() map[string]Column {
	m := make(map[string]Column, len(Columns))
	for _, c := range Columns {
		m[c.Name] = c
	}
	return m
}()

// Lookup returns the column definition for name.
func Lookup(name string) (Column, bool) {
	c, ok := byName[name]
	return c, ok
}

// Names returns all column names in storage order.
func Names() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// Indexed returns the columns that carry an index.
func Indexed() []Column {
	var out []Column
	for _, c := range Columns {
		if c.Indexed {
			out = append(out, c)
		}
	}
	return out
}

// OfKind returns the names of all columns of the given kind.
func OfKind(k Kind) []string {
	var out []string
	for _, c := range Columns {
		if c.Kind == k {
			out = append(out, c.Name)
		}
	}
	return out
}
