package catalogue

import (
	"github.com/securecheck/securecheck-cli/internal/schema"
	"github.com/securecheck/securecheck-cli/internal/store"
)

// Report is one named entry of the catalogue.
type Report struct {
	Name  string
	Build func(d store.Dialect) Query
}

// Slug returns the URL-safe key of the report.
func (r *Report) Slug() string { return Slugify(r.Name) }

// Duration maps a stop_duration label to minutes for averaging.
type Duration struct {
	Label   string  `json:"label" yaml:"label" mapstructure:"label"`
	Minutes float64 `json:"minutes" yaml:"minutes" mapstructure:"minutes"`
}

// DefaultDurations is the stop_duration lookup used when none is configured.
var DefaultDurations = []Duration{
	{Label: "0-15 Min", Minutes: 7.5},
	{Label: "16-30 Min", Minutes: 23},
	{Label: "30+ Min", Minutes: 45},
}

// Report names, in catalogue order.
const (
	TopDrugVehicles          = "Top 10 Drug-Related Vehicles"
	MostSearchedVehicles     = "Most Frequently Searched Vehicles"
	AgeGroupArrestRate       = "Driver Age Group with Highest Arrest Rate"
	GenderByCountry          = "Gender Distribution of Drivers Stopped by Country"
	RaceGenderSearchRate     = "Race and Gender Combination with Highest Search Rate"
	BusiestHour              = "Time of Day with Most Traffic Stops"
	AverageDuration          = "Average Stop Duration for Different Violations"
	NightArrests             = "Night Stops More Likely to Lead to Arrests?"
	ViolationSearchArrest    = "Violations Most Associated with Searches or Arrests"
	YoungDriverViolations    = "Violations Most Common Among Younger Drivers (<25)"
	RarelyEscalated          = "Violation That Rarely Results in Search or Arrest"
	CountryDrugRate          = "Countries with Highest Rate of Drug-Related Stops"
	CountryViolationArrest   = "Arrest Rate by Country and Violation"
	CountryMostSearches      = "Country with Most Stops with Search Conducted"
	YearlyByCountry          = "Yearly Breakdown of Stops and Arrests by Country"
	AgeRaceViolationTrends   = "Driver Violation Trends Based on Age and Race"
	TimePeriodAnalysis       = "Time Period Analysis of Stops (Year, Month, Hour)"
	HighSearchArrestRates    = "Violations with High Search and Arrest Rates"
	DemographicsByCountry    = "Driver Demographics by Country (Age, Gender, and Race)"
	TopViolationsArrestRates = "Top 5 Violations with Highest Arrest Rates"
)

// DefaultReports returns the standard catalogue in display order.
func DefaultReports(durations []Duration) []*Report {
	if durations == nil {
		durations = DefaultDurations
	}

	return []*Report{
		{Name: TopDrugVehicles, Build: func(store.Dialect) Query {
			return topN(schema.VehicleNumber, "stop_count", 10, isSet(schema.DrugsRelatedStop))
		}},
		{Name: MostSearchedVehicles, Build: func(store.Dialect) Query {
			return topN(schema.VehicleNumber, "search_count", 10, isSet(schema.SearchConducted))
		}},
		{Name: AgeGroupArrestRate, Build: func(d store.Dialect) Query {
			return rateBy(
				[]Expr{ageGroup()},
				[]Expr{rate(d, schema.IsArrested, "arrest_rate")},
				where("driver_age > 0"),
			)
		}},
		{Name: GenderByCountry, Build: func(store.Dialect) Query {
			return Query{
				Select: []Expr{dim(schema.CountryName), dim(schema.DriverGender), count("stop_count")},
				Where:  []Cond{known(schema.CountryName), known(schema.DriverGender)},
				Group:  2,
				Order:  []string{schema.CountryName, schema.DriverGender},
			}
		}},
		{Name: RaceGenderSearchRate, Build: func(d store.Dialect) Query {
			q := rateBy(
				[]Expr{dim(schema.DriverRace), dim(schema.DriverGender)},
				[]Expr{rate(d, schema.SearchConducted, "search_rate")},
				known(schema.DriverRace), known(schema.DriverGender),
			)
			q.Limit = 10
			return q
		}},
		{Name: BusiestHour, Build: func(d store.Dialect) Query {
			return Query{
				Select: []Expr{{SQL: d.Hour(schema.StopTime), As: "hour_of_day", Type: TypeInt}, count("stop_count")},
				Group:  1,
				Order:  []string{desc("stop_count"), "hour_of_day"},
			}
		}},
		{Name: AverageDuration, Build: func(d store.Dialect) Query {
			return Query{
				Select: []Expr{dim(schema.Violation), average(d, durationMinutes(durations), "average_duration_minutes")},
				Where:  []Cond{known(schema.Violation)},
				Group:  1,
				Order:  []string{desc("average_duration_minutes"), schema.Violation},
			}
		}},
		{Name: NightArrests, Build: func(d store.Dialect) Query {
			return rateBy([]Expr{dayPart(d)}, []Expr{rate(d, schema.IsArrested, "arrest_rate")})
		}},
		{Name: ViolationSearchArrest, Build: func(d store.Dialect) Query {
			return rateBy(
				[]Expr{dim(schema.Violation)},
				[]Expr{rate(d, schema.SearchConducted, "search_rate"), rate(d, schema.IsArrested, "arrest_rate")},
				known(schema.Violation),
			)
		}},
		{Name: YoungDriverViolations, Build: func(store.Dialect) Query {
			return topN(schema.Violation, "stop_count", 10, where("driver_age > 0"), where("driver_age < 25"))
		}},
		{Name: RarelyEscalated, Build: func(d store.Dialect) Query {
			search := rate(d, schema.SearchConducted, "search_rate")
			arrest := rate(d, schema.IsArrested, "arrest_rate")
			return Query{
				Select: []Expr{dim(schema.Violation), search, arrest},
				Where:  []Cond{known(schema.Violation)},
				Group:  1,
				Having: []string{search.SQL + " < 5", arrest.SQL + " < 5"},
				Order:  []string{"search_rate", "arrest_rate", schema.Violation},
				Limit:  5,
			}
		}},
		{Name: CountryDrugRate, Build: func(d store.Dialect) Query {
			q := rateBy(
				[]Expr{dim(schema.CountryName)},
				[]Expr{rate(d, schema.DrugsRelatedStop, "drug_related_stop_rate")},
				known(schema.CountryName),
			)
			q.Limit = 10
			return q
		}},
		{Name: CountryViolationArrest, Build: func(d store.Dialect) Query {
			return Query{
				Select: []Expr{dim(schema.CountryName), dim(schema.Violation), rate(d, schema.IsArrested, "arrest_rate")},
				Where:  []Cond{known(schema.CountryName), known(schema.Violation)},
				Group:  2,
				Having: []string{"COUNT(*) > 10"},
				Order:  []string{schema.CountryName, desc("arrest_rate"), schema.Violation},
			}
		}},
		{Name: CountryMostSearches, Build: func(store.Dialect) Query {
			return topN(schema.CountryName, "search_conducted_stops_count", 5, isSet(schema.SearchConducted))
		}},
		{Name: YearlyByCountry, Build: func(d store.Dialect) Query {
			return Query{
				Select: []Expr{
					{SQL: d.Year(schema.StopDate), As: "stop_year", Type: TypeInt},
					dim(schema.CountryName),
					count("total_stops"),
					total(d, schema.IsArrested, "total_arrests"),
					rate(d, schema.IsArrested, "arrest_rate_percentage"),
				},
				Where: []Cond{known(schema.CountryName), where("stop_date IS NOT NULL")},
				Group: 2,
				Order: []string{"stop_year", schema.CountryName},
			}
		}},
		{Name: AgeRaceViolationTrends, Build: func(store.Dialect) Query {
			return Query{
				Select: []Expr{dim(schema.DriverRace), intDim(schema.DriverAge), dim(schema.Violation), count("violation_count")},
				Where:  []Cond{known(schema.DriverRace), known(schema.Violation), where("driver_age > 0")},
				Group:  3,
				Order:  []string{schema.DriverRace, schema.DriverAge, desc("violation_count"), schema.Violation},
				Limit:  20,
			}
		}},
		{Name: TimePeriodAnalysis, Build: func(d store.Dialect) Query {
			return Query{
				Select: []Expr{
					{SQL: d.Year(schema.StopDate), As: "stop_year", Type: TypeInt},
					{SQL: d.Month(schema.StopDate), As: "stop_month", Type: TypeInt},
					{SQL: d.Hour(schema.StopTime), As: "stop_hour", Type: TypeInt},
					count("number_of_stops"),
				},
				Where: []Cond{where("stop_date IS NOT NULL"), where("stop_time IS NOT NULL")},
				Group: 3,
				Order: []string{"stop_year", "stop_month", "stop_hour"},
			}
		}},
		{Name: HighSearchArrestRates, Build: func(d store.Dialect) Query {
			return Query{
				Select: []Expr{
					dim(schema.Violation),
					count("total_stops"),
					total(d, schema.SearchConducted, "total_searches"),
					total(d, schema.IsArrested, "total_arrests"),
					rate(d, schema.SearchConducted, "search_rate_percentage"),
					rate(d, schema.IsArrested, "arrest_rate_percentage"),
				},
				Where:  []Cond{known(schema.Violation)},
				Group:  1,
				Having: []string{"COUNT(*) > 50"},
				Order:  []string{desc("search_rate_percentage"), desc("arrest_rate_percentage"), schema.Violation},
				Limit:  10,
			}
		}},
		{Name: DemographicsByCountry, Build: func(d store.Dialect) Query {
			return Query{
				Select: []Expr{
					dim(schema.CountryName),
					dim(schema.DriverGender),
					dim(schema.DriverRace),
					count("total_stops"),
					average(d, schema.DriverAge, "average_driver_age"),
				},
				Where: []Cond{
					known(schema.CountryName), known(schema.DriverGender), known(schema.DriverRace),
					where("driver_age > 0"),
				},
				Group: 3,
				Order: []string{schema.CountryName, desc("total_stops"), schema.DriverGender, schema.DriverRace},
				Limit: 20,
			}
		}},
		{Name: TopViolationsArrestRates, Build: func(d store.Dialect) Query {
			q := rateBy(
				[]Expr{dim(schema.Violation)},
				[]Expr{rate(d, schema.IsArrested, "arrest_rate")},
				known(schema.Violation),
			)
			q.Limit = 5
			return q
		}},
	}
}
