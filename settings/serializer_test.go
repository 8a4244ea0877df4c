// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type color string

type toggle bool

type celsius float32

type labeler interface {
	Label() string
}

type badge struct{ text string }

func (b badge) Label() string { return b.text }

func TestTypes_Serialize(t *testing.T) {
	types := NewTypes()
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "plain", "plain"},
		{"named string", color("red"), "red"},
		{"true", true, "True"},
		{"false", false, "False"},
		{"named bool", toggle(true), "True"},
		{"int", 12, "12"},
		{"negative", int8(-3), "-3"},
		{"uint", uint64(18446744073709551615), "18446744073709551615"},
		{"float", 0.1, "0.1"},
		{"float32", celsius(21.5), "21.5"},
		{"decimal", decimal.RequireFromString("1.10"), "1.1"},
		{"slice", []int{1, 2}, "[1,2]"},
		{"array", [2]string{"a", "b"}, `["a","b"]`},
		{"map", map[string]bool{"on": true}, `{"on":true}`},
		{"time", time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC), "2020-01-02T03:04:05.000000006Z"},
		{"date", civil.Date{Year: 2020, Month: 1, Day: 2}, "2020-01-02"},
		{"clock", civil.Time{Hour: 3, Minute: 4, Second: 5}, "03:04:05"},
		{"row", &organization{ID: "o9"}, "o9"},
		{"file", NewFileRef("a/b.txt"), "file://a/b.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.Serialize(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypes_SerializeErrors(t *testing.T) {
	types := NewTypes()

	_, err := types.Serialize(nil)
	assert.ErrorIs(t, err, ErrSerialization)

	_, err = types.Serialize(struct{}{})
	assert.ErrorIs(t, err, ErrSerialization)

	_, err = types.Serialize(&globalSettings{})
	assert.ErrorIs(t, err, ErrSerialization, "global scopes are not rows")

	_, err = types.Serialize([]any{make(chan int)})
	assert.ErrorIs(t, err, ErrSerialization)

	var f *File
	_, err = types.Serialize(f)
	assert.ErrorIs(t, err, ErrSerialization)

	var org *organization
	assert.NotPanics(t, func() {
		_, err = types.Serialize(org)
	})
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestTypes_InterfaceRegistration(t *testing.T) {
	ctx := context.Background()
	types := NewTypes()
	RegisterType[labeler](types,
		func(l labeler) (string, error) { return "label:" + l.Label(), nil },
		func(s string) (labeler, error) { return badge{text: strings.TrimPrefix(s, "label:")}, nil })

	got, err := types.Serialize(badge{text: "gold"})
	require.NoError(t, err)
	assert.Equal(t, "label:gold", got)

	v, err := types.Deserialize(ctx, "label:gold", reflect.TypeFor[badge](), DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, badge{text: "gold"}, v)
}

func TestTypes_RegistrationOrder(t *testing.T) {
	types := NewTypes()
	RegisterType[labeler](types,
		func(l labeler) (string, error) { return "first", nil },
		func(s string) (labeler, error) { return badge{}, nil })
	RegisterType[badge](types,
		func(b badge) (string, error) { return "second", nil },
		func(s string) (badge, error) { return badge{}, nil })

	got, err := types.Serialize(badge{})
	require.NoError(t, err)
	assert.Equal(t, "first", got, "first matching registration wins")
}

func TestTypes_Deserialize(t *testing.T) {
	ctx := context.Background()
	types := NewTypes()

	tests := []struct {
		name   string
		value  any
		asType reflect.Type
		want   any
	}{
		{"nil", nil, reflect.TypeFor[int](), nil},
		{"untyped string", "hello", nil, "hello"},
		{"untyped true", "True", nil, true},
		{"untyped false", "False", nil, false},
		{"lowercase is not a literal", "true", nil, "true"},
		{"bool type", "anything", reflect.TypeFor[bool](), false},
		{"named bool", "True", reflect.TypeFor[toggle](), toggle(true)},
		{"already typed", 5, reflect.TypeFor[int](), 5},
		{"int", " 42 ", reflect.TypeFor[int](), 42},
		{"int32", "-1", reflect.TypeFor[int32](), int32(-1)},
		{"uint8", "255", reflect.TypeFor[uint8](), uint8(255)},
		{"float32", "21.5", reflect.TypeFor[celsius](), celsius(21.5)},
		{"caller default converted", 3, reflect.TypeFor[float64](), float64(3)},
		{"json slice", `["a","b"]`, reflect.TypeFor[[]string](), []string{"a", "b"}},
		{"json map", `{"a":1}`, reflect.TypeFor[map[string]int](), map[string]int{"a": 1}},
		{"named string", "blue", reflect.TypeFor[color](), color("blue")},
		{"date", "2021-03-04", reflect.TypeFor[civil.Date](), civil.Date{Year: 2021, Month: 3, Day: 4}},
		{"date from timestamp", "2021-03-04T10:00:00Z", reflect.TypeFor[civil.Date](), civil.Date{Year: 2021, Month: 3, Day: 4}},
		{"clock", "10:11:12", reflect.TypeFor[civil.Time](), civil.Time{Hour: 10, Minute: 11, Second: 12}},
		{"unknown type returns raw", "raw", reflect.TypeFor[struct{ A int }](), "raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.Deserialize(ctx, tt.value, tt.asType, DecodeOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypes_DeserializeTolerantDates(t *testing.T) {
	ctx := context.Background()
	types := NewTypes()

	got, err := types.Deserialize(ctx, "2021-03-04 10:11:12", reflect.TypeFor[time.Time](), DecodeOptions{})
	require.NoError(t, err)
	ts := got.(time.Time)
	assert.Equal(t, 2021, ts.Year())
	assert.Equal(t, 11, ts.Minute())

	_, err = types.Deserialize(ctx, "not a date", reflect.TypeFor[time.Time](), DecodeOptions{})
	assert.Error(t, err)
}

func TestTypes_DeserializeErrors(t *testing.T) {
	ctx := context.Background()
	types := NewTypes()

	for _, tt := range []struct {
		value  string
		asType reflect.Type
	}{
		{"1.5", reflect.TypeFor[int]()},
		{"-1", reflect.TypeFor[uint]()},
		{"300", reflect.TypeFor[uint8]()},
		{"abc", reflect.TypeFor[float64]()},
		{"abc", reflect.TypeFor[decimal.Decimal]()},
		{"{", reflect.TypeFor[[]string]()},
	} {
		t.Run(fmt.Sprintf("%s as %s", tt.value, tt.asType), func(t *testing.T) {
			_, err := types.Deserialize(ctx, tt.value, tt.asType, DecodeOptions{})
			assert.Error(t, err)
		})
	}
}

func TestTypes_DeserializeRows(t *testing.T) {
	ctx := context.Background()
	types := NewTypes()
	orgType := reflect.TypeFor[*organization]()

	loader := func(typ reflect.Type) (LoaderFunc, bool) {
		if typ != orgType {
			return nil, false
		}
		return func(_ context.Context, id string) (Node, error) {
			return &organization{ID: id}, nil
		}, true
	}
	got, err := types.Deserialize(ctx, "o7", orgType, DecodeOptions{Loader: loader})
	require.NoError(t, err)
	assert.Equal(t, &organization{ID: "o7"}, got)

	noLoader := func(reflect.Type) (LoaderFunc, bool) { return nil, true }
	_, err = types.Deserialize(ctx, "o7", orgType, DecodeOptions{Loader: noLoader})
	assert.ErrorIs(t, err, ErrNoLoader)
}

func TestTypes_DeserializeFiles(t *testing.T) {
	ctx := context.Background()
	types := NewTypes()
	storage := newMemStorage()
	storage.files["docs/a.txt"] = []byte("x")

	got, err := types.Deserialize(ctx, "file://docs/a.txt", nil, DecodeOptions{Storage: storage})
	require.NoError(t, err)
	f, ok := got.(*File)
	require.True(t, ok)
	assert.Equal(t, "docs/a.txt", f.Name)
	assert.Equal(t, "https://files.example.com/docs/a.txt", f.URL)
	require.NoError(t, f.Close())

	got, err = types.Deserialize(ctx, "file://docs/missing.txt", nil, DecodeOptions{Storage: storage})
	require.NoError(t, err)
	assert.Equal(t, false, got)

	_, err = types.Deserialize(ctx, "file://docs/a.txt", nil, DecodeOptions{})
	assert.ErrorIs(t, err, ErrConfiguration)

	got, err = types.Deserialize(ctx, "file://docs/a.txt", StringType, DecodeOptions{Storage: storage})
	require.NoError(t, err)
	assert.Equal(t, "file://docs/a.txt", got, "an explicit string type keeps the token")
}

func TestTypes_DeserializeFileOpenError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("permission denied")
	_, err := NewTypes().Deserialize(ctx, "file://x", FileType, DecodeOptions{Storage: failingStorage{memStorage: newMemStorage(), err: boom}})
	assert.ErrorIs(t, err, boom)
}

type failingStorage struct {
	*memStorage
	err error
}

func (f failingStorage) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, f.err
}
