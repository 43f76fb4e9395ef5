package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securecheck/securecheck-cli/internal/schema"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func frame(t *testing.T, columns []string, rows ...[]any) *schema.Frame {
	t.Helper()
	f := schema.NewFrame(columns...)
	for _, r := range rows {
		require.NoError(t, f.Append(r...))
	}
	return f
}

func TestNormalize_Scenario(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.DriverAge, schema.IsArrested},
		[]any{"2023-01-01", nil, nil},
		[]any{"not-a-date", "30", "true"},
	)

	out, sum := New().Normalize(raw)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, []string{schema.StopDate, schema.DriverAge, schema.IsArrested}, out.Columns)
	assert.Equal(t, []any{day(2023, 1, 1), int64(-1), false}, out.Rows[0])
	assert.Equal(t, 2, sum.RowsIn)
	assert.Equal(t, 1, sum.RowsOut)
	assert.Equal(t, 1, sum.BadDates)
	assert.Equal(t, 1, sum.Filled[schema.DriverAge])
	assert.Equal(t, 1, sum.Filled[schema.IsArrested])
}

func TestNormalize_EmptyInput(t *testing.T) {
	out, sum := New().Normalize(schema.NewFrame(schema.StopDate, schema.Violation))
	assert.Equal(t, 0, out.Len())
	assert.Empty(t, out.Columns)
	assert.Equal(t, []string{schema.StopDate, schema.Violation}, sum.DroppedColumns)

	out, _ = New().Normalize(nil)
	assert.Equal(t, 0, out.Len())
}

func TestNormalize_DropsFullyEmptyColumns(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.SearchType, "officer_notes", schema.Violation},
		[]any{"2023-02-01", "", nil, "Speeding"},
		[]any{"2023-02-02", "NaN", "", nil},
	)

	out, sum := New().Normalize(raw)

	assert.Equal(t, []string{schema.StopDate, schema.Violation}, out.Columns)
	assert.Equal(t, []string{schema.SearchType, "officer_notes"}, sum.DroppedColumns)
	assert.Equal(t, "Speeding", out.Value(0, schema.Violation))
	assert.Equal(t, "Unknown", out.Value(1, schema.Violation))
}

func TestNormalize_EmptyStopDateColumnKeepsRows(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.Violation},
		[]any{nil, "Speeding"},
		[]any{"", "DUI"},
	)

	out, sum := New().Normalize(raw)

	assert.Equal(t, 2, out.Len())
	assert.Equal(t, []string{schema.Violation}, out.Columns)
	assert.Equal(t, 0, sum.BadDates)
}

func TestNormalize_RowsWithBadDatesRemoved(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.Violation},
		[]any{"2023-01-01", "Speeding"},
		[]any{"13/45/2020", "Speeding"},
		[]any{nil, "Speeding"},
		[]any{"1/2/2020", "Seatbelt"},
		[]any{"2020-03-04T10:00:00Z", "Equipment"},
	)

	out, sum := New().Normalize(raw)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, raw.Len()-sum.BadDates, out.Len())
	assert.Equal(t, day(2020, 1, 2), out.Value(1, schema.StopDate))
	assert.Equal(t, day(2020, 3, 4), out.Value(2, schema.StopDate))
}

func TestNormalize_CustomDateLayouts(t *testing.T) {
	raw := frame(t, []string{schema.StopDate}, []any{"04.03.2020"}, []any{"2020-03-04"})

	out, _ := New(WithDateLayouts("02.01.2006")).Normalize(raw)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, day(2020, 3, 4), out.Value(0, schema.StopDate))
}

func TestNormalize_BooleanColumnsNeverNull(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.SearchConducted, schema.IsArrested, schema.DrugsRelatedStop},
		[]any{"2023-01-01", "True", nil, "0"},
		[]any{"2023-01-02", nil, "FALSE", true},
		[]any{"2023-01-03", "yes", 1.0, "maybe"},
	)

	out, _ := New().Normalize(raw)

	for _, name := range schema.OfKind(schema.KindBool) {
		for i := 0; i < out.Len(); i++ {
			v := out.Value(i, name)
			require.NotNil(t, v, "%s row %d", name, i)
			assert.IsType(t, false, v)
		}
	}
	assert.Equal(t, true, out.Value(0, schema.SearchConducted))
	assert.Equal(t, false, out.Value(0, schema.IsArrested))
	assert.Equal(t, true, out.Value(1, schema.DrugsRelatedStop))
	assert.Equal(t, true, out.Value(2, schema.IsArrested))
	assert.Equal(t, false, out.Value(2, schema.DrugsRelatedStop))
}

func TestNormalize_IntegerCoercion(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.DriverAge, schema.DriverAgeRaw},
		[]any{"2023-01-01", "30", 1990.0},
		[]any{"2023-01-02", 45.0, "1978.0"},
		[]any{"2023-01-03", "abc", "NA"},
	)

	out, sum := New().Normalize(raw)

	assert.Equal(t, int64(30), out.Value(0, schema.DriverAge))
	assert.Equal(t, int64(1990), out.Value(0, schema.DriverAgeRaw))
	assert.Equal(t, int64(45), out.Value(1, schema.DriverAge))
	assert.Equal(t, int64(1978), out.Value(1, schema.DriverAgeRaw))
	assert.Equal(t, int64(-1), out.Value(2, schema.DriverAge))
	assert.Equal(t, int64(-1), out.Value(2, schema.DriverAgeRaw))
	assert.Equal(t, 1, sum.Filled[schema.DriverAge])
}

func TestNormalize_SentinelOnlyForMissing(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.CountryName, schema.DriverGender},
		[]any{"2023-01-01", "Canada", nil},
		[]any{"2023-01-02", " ", "F"},
		[]any{"2023-01-03", "  France ", "M"},
	)

	out, _ := New().Normalize(raw)

	for i := 0; i < raw.Len(); i++ {
		for _, name := range []string{schema.CountryName, schema.DriverGender} {
			if out.Value(i, name) == schema.UnknownCategory {
				assert.True(t, IsMissing(raw.Value(i, name)), "%s row %d", name, i)
			}
		}
	}
	assert.Equal(t, "France", out.Value(2, schema.CountryName))
}

func TestNormalize_StopTimeAsText(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.StopTime},
		[]any{"2023-01-01", "20:15"},
		[]any{"2023-01-02", nil},
		[]any{"2023-01-03", time.Date(0, 1, 1, 6, 5, 0, 0, time.UTC)},
		[]any{"2023-01-04", 930},
	)

	out, _ := New().Normalize(raw)

	assert.Equal(t, "20:15", out.Value(0, schema.StopTime))
	assert.Nil(t, out.Value(1, schema.StopTime))
	assert.Equal(t, "06:05:00", out.Value(2, schema.StopTime))
	assert.Equal(t, "930", out.Value(3, schema.StopTime))
}

func TestNormalize_NumericText(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.VehicleNumber, schema.DriverAge, schema.DrugsRelatedStop, schema.CountryName},
		[]any{"2023-01-01", json.Number("12345678"), json.Number("31"), json.Number("1"), 12345678.0},
		[]any{"2023-01-02", 1.5e7, json.Number("42.9"), json.Number("0"), 0.25},
	)

	out, sum := New().Normalize(raw)

	assert.Equal(t, "12345678", out.Value(0, schema.VehicleNumber))
	assert.Equal(t, int64(31), out.Value(0, schema.DriverAge))
	assert.Equal(t, true, out.Value(0, schema.DrugsRelatedStop))
	assert.Equal(t, "12345678", out.Value(0, schema.CountryName))
	assert.Equal(t, "15000000", out.Value(1, schema.VehicleNumber))
	assert.Equal(t, int64(42), out.Value(1, schema.DriverAge))
	assert.Equal(t, false, out.Value(1, schema.DrugsRelatedStop))
	assert.Equal(t, "0.25", out.Value(1, schema.CountryName))
	assert.Empty(t, sum.Filled)
}

func TestNormalize_ShortRows(t *testing.T) {
	raw := &schema.Frame{
		Columns: []string{schema.StopDate, schema.Violation, schema.DriverAge},
		Rows: [][]any{
			{"2023-01-01", "DUI", "30"},
			{"2023-01-02"},
			{},
		},
	}

	var out *schema.Frame
	require.NotPanics(t, func() { out, _ = New().Normalize(raw) })

	require.Len(t, out.Rows, 2)
	assert.Equal(t, schema.UnknownCategory, out.Value(1, schema.Violation))
	assert.Equal(t, schema.MissingInt, out.Value(1, schema.DriverAge))
}

func TestNormalize_UnrecognizedColumnsPassThrough(t *testing.T) {
	raw := frame(t,
		[]string{"officer_id", schema.StopDate},
		[]any{" 17 ", "2023-01-01"},
		[]any{nil, "2023-01-02"},
	)

	out, _ := New().Normalize(raw)

	assert.Equal(t, " 17 ", out.Value(0, "officer_id"))
	assert.Nil(t, out.Value(1, "officer_id"))
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := frame(t,
		[]string{
			schema.StopDate, schema.StopTime, schema.CountryName, schema.DriverAge,
			schema.IsArrested, schema.Violation, "extra", "only_in_bad_row",
		},
		[]any{"2023-01-01", "10:00", "Canada", "31", "True", " Speeding", nil, nil},
		[]any{"2023-01-02", nil, nil, nil, nil, nil, "x", nil},
		[]any{"garbage", "11:00", "USA", 40.0, false, "DUI", "y", "z"},
	)

	n := New()
	once, _ := n.Normalize(raw)
	twice, sum := n.Normalize(once)

	assert.Equal(t, once, twice)
	assert.Empty(t, sum.DroppedColumns)
	assert.Equal(t, 0, sum.BadDates)
	assert.NotContains(t, once.Columns, "only_in_bad_row")
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	raw := frame(t,
		[]string{schema.StopDate, schema.Violation},
		[]any{"2023-01-01", nil},
	)

	_, _ = New().Normalize(raw)

	assert.Equal(t, []any{"2023-01-01", nil}, raw.Rows[0])
}

func TestIsMissing(t *testing.T) {
	for _, v := range []any{nil, "", "  ", "NA", "NaN", "null", "None"} {
		assert.True(t, IsMissing(v), "%#v", v)
	}
	for _, v := range []any{"0", "Unknown", false, 0, int64(-1), time.Now()} {
		assert.False(t, IsMissing(v), "%#v", v)
	}
}
