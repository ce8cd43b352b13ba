package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyValues(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name string
		in   []Value
		want ColumnType
	}{
		{"empty", nil, TypeUnknown},
		{"all missing", []Value{MissingValue(), StringValue("")}, TypeUnknown},
		{"numbers", []Value{NumberValue(1), StringValue(" 2.5 "), StringValue("1e3")}, TypeNumber},
		{"radix literals", []Value{StringValue("0x10"), StringValue("0b101"), StringValue("0o17")}, TypeNumber},
		{"signed and overflowing", []Value{StringValue("+5"), StringValue("1e400"), StringValue("-Infinity")}, TypeNumber},
		{"dates", []Value{StringValue("2024-01-02"), StringValue("2024/02/03"), StringValue("3/4/2024"), StringValue("2024-05-06T07:08:09Z")}, TypeDate},
		{"booleans", []Value{BoolValue(true), StringValue("No"), StringValue("YES"), StringValue("false")}, TypeBoolean},
		{"booleans are not numbers", []Value{BoolValue(true), BoolValue(false), BoolValue(true)}, TypeBoolean},
		{"text", []Value{StringValue("a"), StringValue("b")}, TypeString},
		{"nan is not a number", []Value{StringValue("NaN"), StringValue("NaN")}, TypeString},
		{"inf codes are text", []Value{StringValue("INF"), StringValue("inf"), StringValue("infinity"), StringValue("N/A")}, TypeString},
		{"digit separators are text", []Value{StringValue("1_000"), StringValue("2_500"), StringValue("3_000")}, TypeString},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyValues(tc.in, p), tc.name)
	}
}

func TestClassifySamplesOnlyFirstValues(t *testing.T) {
	p := DefaultPolicy()
	p.SampleSize = 4
	vals := []Value{NumberValue(1), NumberValue(2), NumberValue(3), NumberValue(4), StringValue("a"), StringValue("b"), StringValue("c")}
	assert.Equal(t, TypeNumber, ClassifyValues(vals, p))
}

func TestValueIdentity(t *testing.T) {
	assert.Equal(t, StringValue("1").String(), NumberValue(1).String())
	assert.Equal(t, "1.5", NumberValue(1.5).String())
	assert.Equal(t, "false", BoolValue(false).String())
	assert.True(t, StringValue("").IsMissing())
	assert.True(t, ValueOf(nil).IsMissing())

	_, ok := StringValue("Infinity").Finite()
	assert.False(t, ok, "infinity is not finite")
	_, ok = NumberValue(math.NaN()).Float()
	assert.False(t, ok, "NaN does not coerce")

	for _, n := range []any{uint(5), uint64(5), uint8(5), int8(5), int16(5), int64(5)} {
		v := ValueOf(n)
		assert.Equal(t, KindNumber, v.Kind(), "%T", n)
		assert.Equal(t, ValueOf(5).String(), v.String(), "%T", n)
	}
}

func TestValueFloatText(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{" 42 ", 42, true},
		{"+5", 5, true},
		{"1.", 1, true},
		{".5", 0.5, true},
		{"-2.5e3", -2500, true},
		{"0x10", 16, true},
		{"0XfF", 255, true},
		{"0o17", 15, true},
		{"0b101", 5, true},
		{"1e400", math.Inf(1), true},
		{"-1e400", math.Inf(-1), true},
		{"Infinity", math.Inf(1), true},
		{"-Infinity", math.Inf(-1), true},
		{"1e-400", 0, true},
		{"inf", 0, false},
		{"infinity", 0, false},
		{"INF", 0, false},
		{"NaN", 0, false},
		{"1_000", 0, false},
		{"-0x10", 0, false},
		{"0x", 0, false},
		{"0b2", 0, false},
		{"1,5", 0, false},
		{"e5", 0, false},
		{".", 0, false},
	}
	for _, tc := range cases {
		got, ok := StringValue(tc.in).Float()
		require.Equal(t, tc.ok, ok, "%q", tc.in)
		if ok {
			assert.Equal(t, tc.want, got, "%q", tc.in)
		}
		assert.Equal(t, tc.ok, IsNumberLike(StringValue(tc.in)), "%q", tc.in)
	}
}

func TestProfileColumnTopValues(t *testing.T) {
	ds := NewDataset([]string{"c"}, []Row{
		{"c": StringValue("b")},
		{"c": StringValue("a")},
		{"c": StringValue("a")},
		{"c": StringValue("b")},
		{"c": StringValue("c")},
		{"c": MissingValue()},
		{"c": StringValue("d")},
		{"c": StringValue("e")},
		{"c": StringValue("f")},
	})
	prof := ProfileColumn(ds, "c", DefaultPolicy())
	assert.Equal(t, 1, prof.MissingCount)
	assert.Equal(t, 8, prof.ValidCount)
	assert.Equal(t, 6, prof.UniqueCount)

	want := []string{"b", "a", "c", "d", "e"}
	require.Len(t, prof.TopValues, len(want))
	for i, w := range want {
		assert.Equal(t, w, prof.TopValues[i].Value, "top[%d]", i)
	}
	assert.Nil(t, prof.Stats, "string column has no stats")
}

func TestProfileColumnStats(t *testing.T) {
	ds := NewDataset([]string{"n"}, []Row{
		{"n": NumberValue(2)},
		{"n": StringValue("4")},
		{"n": NumberValue(4)},
		{"n": NumberValue(4)},
		{"n": NumberValue(5)},
		{"n": NumberValue(5)},
		{"n": NumberValue(7)},
		{"n": NumberValue(9)},
		{"n": StringValue("Infinity")},
	})
	prof := ProfileColumn(ds, "n", DefaultPolicy())
	assert.Equal(t, TypeNumber, prof.Type)
	require.NotNil(t, prof.Stats)
	st := prof.Stats
	assert.Equal(t, 5.0, st.Mean)
	assert.Equal(t, 4.5, st.Median)
	assert.Equal(t, 2.0, st.StdDev)
	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 9.0, st.Max)
	// "4" and 4 share identity
	assert.Equal(t, "4", prof.TopValues[0].Value)
	assert.Equal(t, 3, prof.TopValues[0].Count)
}
