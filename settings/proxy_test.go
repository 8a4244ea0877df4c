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
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxy_RoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	org := &organization{ID: "o1"}
	env.orgs["o1"] = org
	p := env.proxy(t, org)

	ts := time.Date(2024, 2, 29, 13, 45, 30, 123456789, time.UTC)
	tests := []struct {
		name  string
		value any
	}{
		{"string", "hello world"},
		{"int", 42},
		{"int64", int64(-7)},
		{"uint16", uint16(65535)},
		{"float64", 2.5},
		{"bool true", true},
		{"bool false", false},
		{"string slice", []string{"a", "b"}},
		{"map", map[string]int{"x": 1, "y": 2}},
		{"date", civil.Date{Year: 2024, Month: time.February, Day: 29}},
		{"clock", civil.Time{Hour: 13, Minute: 45, Second: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, p.Set(ctx, "k", tt.value))
			require.NoError(t, p.Flush(ctx))

			got, err := p.Get(ctx, "k", AsType(reflect.TypeOf(tt.value)))
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
			assert.IsType(t, tt.value, got)
		})
	}

	t.Run("decimal", func(t *testing.T) {
		d := decimal.RequireFromString("12.340")
		require.NoError(t, p.Set(ctx, "k", d))
		require.NoError(t, p.Flush(ctx))

		got, err := GetAs[decimal.Decimal](ctx, p, "k")
		require.NoError(t, err)
		assert.True(t, d.Equal(got), "got %s", got)
	})

	t.Run("time", func(t *testing.T) {
		require.NoError(t, p.Set(ctx, "k", ts))
		require.NoError(t, p.Flush(ctx))

		got, err := GetAs[time.Time](ctx, p, "k")
		require.NoError(t, err)
		assert.True(t, ts.Equal(got), "got %s", got)
	})

	t.Run("row", func(t *testing.T) {
		require.NoError(t, p.Set(ctx, "k", org))
		require.NoError(t, p.Flush(ctx))

		got, err := GetAs[*organization](ctx, p, "k")
		require.NoError(t, err)
		assert.Same(t, org, got)
	})
}

func TestProxy_ReadYourWrites(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.proxy(t, &organization{ID: "o1"})

	require.NoError(t, p.Set(ctx, "foo", "bar"))
	got, err := p.Get(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", got)
}

func TestProxy_HierarchyOverride(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	org := &organization{ID: "o1"}
	alice := &user{ID: "alice", Organization: org}
	bob := &user{ID: "bob", Organization: org}

	require.NoError(t, env.proxy(t, &globalSettings{}).Set(ctx, "color", "grey"))
	require.NoError(t, env.proxy(t, org).Set(ctx, "color", "blue"))

	got, err := env.proxy(t, alice).Get(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, "blue", got, "leaf inherits the mid-tier value")

	require.NoError(t, env.proxy(t, alice).Set(ctx, "color", "red"))

	got, err = env.proxy(t, alice).Get(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, "red", got)

	got, err = env.proxy(t, bob).Get(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, "blue", got, "sibling keeps the mid-tier value")
}

func TestProxy_DeleteRevealsParent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	org := &organization{ID: "o1"}
	alice := &user{ID: "alice", Organization: org}

	require.NoError(t, env.proxy(t, org).Set(ctx, "lang", "de"))
	p := env.proxy(t, alice)
	require.NoError(t, p.Set(ctx, "lang", "en"))
	require.NoError(t, p.Delete(ctx, "lang"))

	got, err := p.Get(ctx, "lang")
	require.NoError(t, err)
	assert.Equal(t, "de", got)

	recs, err := env.backend.ListRecords(ctx, p.owner())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestProxy_DeleteMissingKey(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.proxy(t, &organization{ID: "o1"})

	require.NoError(t, p.Delete(ctx, "nope"))
	got, err := p.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProxy_Freeze(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.h.AddDefault("test_default", "def", StringType)

	org := &organization{ID: "o1"}
	alice := &user{ID: "alice", Organization: org}

	op := env.proxy(t, org)
	require.NoError(t, op.Set(ctx, "bar", "baz"))
	require.NoError(t, op.Set(ctx, "foo", "baz"))
	up := env.proxy(t, alice)
	require.NoError(t, up.Set(ctx, "foo", "bar"))

	frozen, err := up.Freeze(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"test_default": "def",
		"bar":          "baz",
		"foo":          "bar",
	}, frozen)

	for k, v := range frozen {
		got, err := up.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, v, got, k)
	}
}

func TestProxy_FreezeUsesDeclaredTypes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.h.AddDefault("retries", "3", reflect.TypeFor[int]())
	env.h.Defaults().AddTyped("limit", reflect.TypeFor[int]())

	p := env.proxy(t, &organization{ID: "o1"})
	require.NoError(t, p.Set(ctx, "limit", 10))

	frozen, err := p.Freeze(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"retries": 3, "limit": 10}, frozen)
}

func TestProxy_ImplicitBool(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.proxy(t, &organization{ID: "o1"})

	require.NoError(t, p.Set(ctx, "enabled", true))
	require.NoError(t, p.Set(ctx, "hidden", false))
	require.NoError(t, p.Flush(ctx))

	got, err := p.Get(ctx, "enabled")
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = p.Get(ctx, "hidden")
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = p.Get(ctx, "enabled", AsType(StringType))
	require.NoError(t, err)
	assert.Equal(t, "True", got)
}

func TestProxy_SetUnknownTypeKeepsValue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.proxy(t, &organization{ID: "o1"})

	require.NoError(t, p.Set(ctx, "k", "before"))
	saves := env.backend.saveCount.Load()

	err := p.Set(ctx, "k", struct{ X chan int }{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerialization))
	assert.Equal(t, saves, env.backend.saveCount.Load(), "nothing may be written")

	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "before", got)

	require.NoError(t, p.Flush(ctx))
	got, err = p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "before", got)
}

func TestProxy_SetNilRowKeepsValue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.proxy(t, &user{ID: "alice"})

	require.NoError(t, p.Set(ctx, "owner", &organization{ID: "o1"}))

	var err error
	require.NotPanics(t, func() {
		err = p.Set(ctx, "owner", (*organization)(nil))
	})
	assert.ErrorIs(t, err, ErrSerialization)

	got, err := p.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "o1", got)
}

func TestProxy_SetBackendErrorKeepsCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.proxy(t, &organization{ID: "o1"})
	require.NoError(t, p.Set(ctx, "k", "before"))

	env.backend.saveErr = errors.New("connection refused")
	err := p.Set(ctx, "k", "after")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "before", got)
}

func TestProxy_Defaults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.h.AddDefault("timeout", "30", reflect.TypeFor[int]())
	p := env.proxy(t, &user{ID: "alice"})

	t.Run("registered default is typed", func(t *testing.T) {
		got, err := p.Get(ctx, "timeout")
		require.NoError(t, err)
		assert.Equal(t, 30, got)
	})

	t.Run("registered default beats caller default", func(t *testing.T) {
		got, err := p.Get(ctx, "timeout", WithDefault(5))
		require.NoError(t, err)
		assert.Equal(t, 30, got)
	})

	t.Run("caller default is the last resort", func(t *testing.T) {
		got, err := p.Get(ctx, "missing", WithDefault("fallback"))
		require.NoError(t, err)
		assert.Equal(t, "fallback", got)
	})

	t.Run("caller default is converted", func(t *testing.T) {
		got, err := p.Get(ctx, "missing", WithDefault(0), AsType(reflect.TypeFor[decimal.Decimal]()))
		require.NoError(t, err)
		assert.True(t, decimal.Zero.Equal(got.(decimal.Decimal)))
	})

	t.Run("nothing found", func(t *testing.T) {
		got, err := p.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("stored value beats default", func(t *testing.T) {
		require.NoError(t, p.Set(ctx, "timeout", 60))
		got, err := GetAs[int](ctx, p, "timeout")
		require.NoError(t, err)
		assert.Equal(t, 60, got)
	})

	t.Run("parent value is decoded at the leaf", func(t *testing.T) {
		require.NoError(t, env.proxy(t, &globalSettings{}).Set(ctx, "timeout", 90))
		got, err := env.proxy(t, &user{ID: "bob"}).Get(ctx, "timeout")
		require.NoError(t, err)
		assert.Equal(t, 90, got)
	})

	t.Run("untyped default reads as string", func(t *testing.T) {
		env.h.AddDefault("beta", "True", nil)
		got, err := p.Get(ctx, "beta")
		require.NoError(t, err)
		assert.Equal(t, "True", got)

		def, ok := env.h.Defaults().Lookup("beta")
		require.True(t, ok)
		assert.Equal(t, StringType, def.Type)
	})
}

func TestProxy_GetParseError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.proxy(t, &organization{ID: "o1"})
	require.NoError(t, p.Set(ctx, "k", "not a number"))

	_, err := GetAs[int](ctx, p, "k")
	assert.Error(t, err)
}

func TestProxy_CustomType(t *testing.T) {
	type rgb struct{ R, G, B uint8 }

	ctx := context.Background()
	env := newTestEnv(t)
	RegisterType(env.h.Types(),
		func(c rgb) (string, error) { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil },
		func(s string) (rgb, error) {
			var c rgb
			_, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
			return c, err
		})

	p := env.proxy(t, &organization{ID: "o1"})
	require.NoError(t, p.Set(ctx, "brand", rgb{0xff, 0x80, 0x00}))

	raw, err := p.Get(ctx, "brand", AsType(StringType))
	require.NoError(t, err)
	assert.Equal(t, "#ff8000", raw)

	got, err := GetAs[rgb](ctx, p, "brand")
	require.NoError(t, err)
	assert.Equal(t, rgb{0xff, 0x80, 0x00}, got)
}

func TestProxy_Caching(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	org := &organization{ID: "o1"}
	key := "hierarkey_organization_settings_o1"

	p := env.proxy(t, org)
	_, err := p.Get(ctx, "a")
	require.NoError(t, err)
	_, err = p.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, env.cache.has(key))
	assert.Equal(t, 1, env.cache.loadCount(key), "one proxy hydrates once")
	assert.Equal(t, DefaultCacheTTL, env.cache.lastTTL)

	// A second proxy for the same node hits the external cache.
	_, err = env.proxy(t, org).Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, env.cache.loadCount(key))

	require.NoError(t, p.Set(ctx, "a", "1"))
	assert.False(t, env.cache.has(key), "writes drop the external entry")

	got, err := env.proxy(t, org).Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, 2, env.cache.loadCount(key))
}

func TestProxy_StaleUntilFlush(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	org := &organization{ID: "o1"}

	reader := env.proxy(t, org)
	_, err := reader.Get(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, env.proxy(t, org).Set(ctx, "k", "v"))

	got, err := reader.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got, "an already hydrated proxy keeps its snapshot")

	require.NoError(t, reader.Flush(ctx))
	got, err = reader.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestProxy_DuplicateRecordsLastWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	org := &organization{ID: "o1"}
	p := env.proxy(t, org)

	env.backend.Insert(p.owner(), "k", "old")
	last := env.backend.Insert(p.owner(), "k", "new")

	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", got)

	require.NoError(t, p.Set(ctx, "k", "newer"))
	recs, err := env.backend.ListRecords(ctx, p.owner())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "old", recs[0].Value)
	assert.Equal(t, Record{ID: last.ID, Key: "k", Value: "newer"}, recs[1])
}

func TestProxy_ItemAccessors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.proxy(t, &organization{ID: "o1"})

	require.NoError(t, p.SetItem(ctx, "k", 7))
	got, err := p.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	require.NoError(t, p.DeleteItem(ctx, "k"))
	got, err = p.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProxy_ParentFunc(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	type team struct{ organization }
	var calls int
	require.NoError(t, env.h.Add(&team{}, "team_settings", WithParentFunc(func(_ context.Context, n Node) (Node, error) {
		calls++
		if n.ScopeID() == "orphan" {
			return nil, ErrNoParent
		}
		return &organization{ID: "o1"}, nil
	})))

	require.NoError(t, env.proxy(t, &globalSettings{}).Set(ctx, "k", "global"))
	require.NoError(t, env.proxy(t, &organization{ID: "o1"}).Set(ctx, "k", "org"))

	p := env.proxy(t, &team{organization{ID: "t1"}})
	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "org", got)
	_, err = p.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "parent is resolved once per proxy")

	got, err = env.proxy(t, &team{organization{ID: "orphan"}}).Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "global", got)
}

func TestProxy_ParentError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	type team struct{ organization }
	boom := errors.New("lookup failed")
	require.NoError(t, env.h.Add(&team{}, "", WithParentFunc(func(context.Context, Node) (Node, error) {
		return nil, boom
	})))

	_, err := env.proxy(t, &team{organization{ID: "t1"}}).Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
}

func TestProxy_WithoutGlobal(t *testing.T) {
	ctx := context.Background()
	h, err := New("settings", NewMemoryBackend(), nil)
	require.NoError(t, err)
	require.NoError(t, h.Add(&user{}, "", WithParentField("Organization")))
	require.NoError(t, h.Add(&organization{}, ""))

	org := &organization{ID: "o1"}
	op, err := h.Proxy(org)
	require.NoError(t, err)
	require.NoError(t, op.Set(ctx, "k", "v"))

	up, err := h.Proxy(&user{ID: "u1", Organization: org})
	require.NoError(t, err)
	got, err := up.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	got, err = op.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}
