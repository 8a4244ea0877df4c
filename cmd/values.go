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

package cmd

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cardinalhq/hierarkey/settings"
)

var valueTypes = map[string]reflect.Type{
	"string":   settings.StringType,
	"int":      reflect.TypeFor[int64](),
	"float":    reflect.TypeFor[float64](),
	"bool":     reflect.TypeFor[bool](),
	"decimal":  reflect.TypeFor[decimal.Decimal](),
	"datetime": reflect.TypeFor[time.Time](),
	"date":     reflect.TypeFor[civil.Date](),
	"time":     reflect.TypeFor[civil.Time](),
	"json":     reflect.TypeFor[map[string]any](),
	"list":     reflect.TypeFor[[]any](),
	"file":     settings.FileType,
}

// parseValueType maps a --type name onto its Go type. An empty name means
// no conversion.
func parseValueType(name string) (reflect.Type, error) {
	if name == "" {
		return nil, nil
	}
	if t, ok := valueTypes[strings.ToLower(name)]; ok {
		return t, nil
	}
	names := make([]string, 0, len(valueTypes))
	for n := range valueTypes {
		names = append(names, n)
	}
	slices.Sort(names)
	return nil, fmt.Errorf("unknown type %q, want one of %s", name, strings.Join(names, ", "))
}

// convertValue parses the command line form of a value as typ.
func convertValue(ctx context.Context, types *settings.Types, raw string, typ reflect.Type) (any, error) {
	if typ == nil || typ == settings.StringType {
		return raw, nil
	}
	if typ == settings.FileType {
		return nil, fmt.Errorf("use --file to store file settings")
	}
	if typ.Kind() == reflect.Bool {
		return strconv.ParseBool(strings.TrimSpace(raw))
	}
	v, err := types.Deserialize(ctx, raw, typ, settings.DecodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	return v, nil
}

// displayValue renders a resolved setting for output. Files print as their
// URL and other values in their stored form.
func displayValue(types *settings.Types, v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case *settings.File:
		_ = v.Close()
		return v.URL
	}
	if s, err := types.Serialize(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// jsonValue is displayValue for values that encoding/json cannot render
// faithfully.
func jsonValue(types *settings.Types, v any) any {
	switch v := v.(type) {
	case *settings.File:
		_ = v.Close()
		return v.URL
	case decimal.Decimal, civil.Date, civil.Time:
		return displayValue(types, v)
	}
	return v
}
