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
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

var (
	stringType  = reflect.TypeFor[string]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
	timeType    = reflect.TypeFor[time.Time]()
	dateType    = reflect.TypeFor[civil.Date]()
	clockType   = reflect.TypeFor[civil.Time]()
	fileType    = reflect.TypeFor[*File]()
)

// StringType requests the raw stored string from Get.
var StringType = stringType

// FileType requests a *File from Get.
var FileType = fileType

type typeEntry struct {
	typ         reflect.Type
	serialize   func(any) (string, error)
	unserialize func(string) (any, error)
}

// Types is the serializer registry of a hierarchy. Built-in support covers
// strings, booleans, numbers, decimal.Decimal, slices and maps (as JSON),
// time.Time, civil.Date, civil.Time, row scope nodes and *File. Other types
// are added with Register and matched in registration order.
type Types struct {
	mu      sync.RWMutex
	entries []typeEntry
}

// NewTypes returns an empty registry.
func NewTypes() *Types {
	return &Types{}
}

// Register adds serialization support for typ. Values assignable to typ
// (or implementing it, for interface types) use these functions.
func (t *Types) Register(typ reflect.Type, serialize func(any) (string, error), unserialize func(string) (any, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, typeEntry{typ: typ, serialize: serialize, unserialize: unserialize})
}

// RegisterType is the typed form of Types.Register.
func RegisterType[T any](types *Types, serialize func(T) (string, error), unserialize func(string) (T, error)) {
	types.Register(reflect.TypeFor[T](),
		func(v any) (string, error) { return serialize(v.(T)) },
		func(s string) (any, error) { return unserialize(s) },
	)
}

// Serialize converts value into its stored string form.
func (t *Types) Serialize(value any) (string, error) {
	if value == nil {
		return "", fmt.Errorf("%w: <nil>", ErrSerialization)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "", fmt.Errorf("%w: nil %T", ErrSerialization, value)
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		if rv.Bool() {
			return "True", nil
		}
		return "False", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits()), nil
	}

	if d, ok := value.(decimal.Decimal); ok {
		return d.String(), nil
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		b, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("%w: %T: %w", ErrSerialization, value, err)
		}
		return string(b), nil
	}

	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case civil.Date:
		return v.String(), nil
	case civil.Time:
		return v.String(), nil
	case Row:
		return v.ScopeID(), nil
	case *File:
		return filePrefix + v.Name, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if rv.Type().AssignableTo(e.typ) {
			return e.serialize(value)
		}
	}

	return "", fmt.Errorf("%w: unhandled type %T", ErrSerialization, value)
}

// DecodeOptions carries what Deserialize needs beyond the registry.
type DecodeOptions struct {
	// BinaryFile opens *File values in binary mode.
	BinaryFile bool
	// Storage opens *File values.
	Storage FileStorage
	// Loader returns the loader of a registered row scope type.
	Loader func(reflect.Type) (LoaderFunc, bool)
}

// Deserialize converts value into asType. The checks run in a fixed order:
// matching type, nil, numbers, JSON containers, the "True"/"False"
// literals, files, calendar types, registered types, row scopes, and finally
// the raw value. With a nil asType, "file://" tokens are opened as files and
// the boolean literals become booleans.
func (t *Types) Deserialize(ctx context.Context, value any, asType reflect.Type, opts DecodeOptions) (any, error) {
	raw, isString := value.(string)
	if asType == nil && isString && strings.HasPrefix(raw, filePrefix) {
		asType = fileType
	}

	if asType != nil && value != nil && reflect.TypeOf(value).AssignableTo(asType) {
		return value, nil
	}
	if value == nil {
		return nil, nil
	}
	if !isString {
		if asType == nil {
			return value, nil
		}
		s, err := t.Serialize(value)
		if err != nil {
			return nil, err
		}
		raw = s
	}

	if asType != nil {
		if v, ok, err := parseNumber(raw, asType); ok {
			return v, err
		}
		switch asType.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			ptr := reflect.New(asType)
			if err := json.Unmarshal([]byte(raw), ptr.Interface()); err != nil {
				return nil, fmt.Errorf("settings: cannot read %q as %s: %w", raw, asType, err)
			}
			return ptr.Elem().Interface(), nil
		}
	}

	if (asType != nil && asType.Kind() == reflect.Bool) || raw == "True" || raw == "False" {
		b := raw == "True"
		if asType != nil && asType.Kind() == reflect.Bool {
			out := reflect.New(asType).Elem()
			out.SetBool(b)
			return out.Interface(), nil
		}
		return b, nil
	}

	if asType == nil {
		return value, nil
	}

	switch asType {
	case fileType:
		return openFile(ctx, raw, opts)
	case timeType:
		return parseDateTime(raw)
	case dateType:
		if d, err := civil.ParseDate(raw); err == nil {
			return d, nil
		}
		ts, err := parseDateTime(raw)
		if err != nil {
			return nil, err
		}
		return civil.DateOf(ts), nil
	case clockType:
		if c, err := civil.ParseTime(raw); err == nil {
			return c, nil
		}
		ts, err := parseDateTime(raw)
		if err != nil {
			return nil, err
		}
		return civil.TimeOf(ts), nil
	}

	t.mu.RLock()
	for _, e := range t.entries {
		if asType.AssignableTo(e.typ) {
			t.mu.RUnlock()
			return e.unserialize(raw)
		}
	}
	t.mu.RUnlock()

	if asType.Kind() == reflect.String {
		return reflect.ValueOf(raw).Convert(asType).Interface(), nil
	}

	if opts.Loader != nil {
		if loader, ok := opts.Loader(asType); ok {
			if loader == nil {
				return nil, fmt.Errorf("%w: %s", ErrNoLoader, asType)
			}
			return loader(ctx, raw)
		}
	}

	return value, nil
}

func parseNumber(raw string, asType reflect.Type) (any, bool, error) {
	if asType == decimalType {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, true, fmt.Errorf("settings: cannot read %q as decimal: %w", raw, err)
		}
		return d, true, nil
	}

	out := reflect.New(asType).Elem()
	s := strings.TrimSpace(raw)
	switch asType.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, asType.Bits())
		if err != nil {
			return nil, true, fmt.Errorf("settings: cannot read %q as %s: %w", raw, asType, err)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, asType.Bits())
		if err != nil {
			return nil, true, fmt.Errorf("settings: cannot read %q as %s: %w", raw, asType, err)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, asType.Bits())
		if err != nil {
			return nil, true, fmt.Errorf("settings: cannot read %q as %s: %w", raw, asType, err)
		}
		out.SetFloat(f)
	default:
		return nil, false, nil
	}
	return out.Interface(), true, nil
}

func parseDateTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	ts, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("settings: cannot read %q as a date: %w", raw, err)
	}
	return ts, nil
}

// openFile resolves a file token. A missing object yields false.
func openFile(ctx context.Context, raw string, opts DecodeOptions) (any, error) {
	if opts.Storage == nil {
		return nil, fmt.Errorf("%w: no file storage for %q", ErrConfiguration, raw)
	}
	name := strings.TrimPrefix(raw, filePrefix)
	rc, err := opts.Storage.Open(ctx, name)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, nil
		}
		return nil, fmt.Errorf("settings: open %q: %w", name, err)
	}
	return openedFile(name, opts.Storage.URL(name), rc, opts.BinaryFile), nil
}
