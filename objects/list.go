package objects

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

var sortKeyMapping = map[string]string{
	"Size":     "Size",
	"Type":     "Type",
	"Language": "Language",
	"Charset":  "Charset",
	"Encoding": "Encoding",
	"CTime":    "CTime",
	"MTime":    "MTime",
	"PTime":    "PTime",
	"DTime":    "DTime",
}

func ParseObjectSortKeys(sortKeysStr string) ([]string, error) {
	if sortKeysStr == "" {
		return nil, nil
	}
	keys := strings.Split(sortKeysStr, ",")
	uniqueKeys := make(map[string]bool)
	validKeys := []string{}

	for _, key := range keys {
		key = strings.TrimSpace(key)
		lookupKey := key
		if strings.HasPrefix(key, "-") {
			lookupKey = key[1:]
		}

		if _, found := sortKeyMapping[lookupKey]; !found {
			return nil, errors.New("invalid sort key: " + key)
		}
		if uniqueKeys[lookupKey] {
			return nil, errors.New("duplicate sort key: " + key)
		}
		uniqueKeys[lookupKey] = true
		validKeys = append(validKeys, key)
	}

	return validKeys, nil
}

func SortObjects(objs []*Object, sortKeys []string) error {
	var err error
	sort.SliceStable(objs, func(i, j int) bool {
		for _, key := range sortKeys {
			ascending := true
			if strings.HasPrefix(key, "-") {
				ascending = false
				key = key[1:]
			}

			field := sortKeyMapping[key]
			valI := reflect.ValueOf(*objs[i]).FieldByName(field)
			valJ := reflect.ValueOf(*objs[j]).FieldByName(field)

			if !valI.IsValid() || !valJ.IsValid() {
				err = errors.New("invalid sort key: " + key)
				return false
			}

			switch valI.Kind() {
			case reflect.String:
				if valI.String() != valJ.String() {
					if ascending {
						return valI.String() < valJ.String()
					}
					return valI.String() > valJ.String()
				}
			case reflect.Int, reflect.Int64:
				if valI.Int() != valJ.Int() {
					if ascending {
						return valI.Int() < valJ.Int()
					}
					return valI.Int() > valJ.Int()
				}
			case reflect.Struct:
				tI, okI := valI.Interface().(time.Time)
				tJ, okJ := valJ.Interface().(time.Time)
				if !okI || !okJ {
					err = errors.New("unsupported field type for sorting: " + key)
					return false
				}
				if !tI.Equal(tJ) {
					if ascending {
						return tI.Before(tJ)
					}
					return tI.After(tJ)
				}
			default:
				err = errors.New("unsupported field type for sorting: " + key)
				return false
			}
		}
		return false
	})
	return err
}

// Filter selects objects during a list operation. String fields match on
// Value; Size and the timestamp fields match on [Min, Max] bounds, each
// optionally exclusive. Complement negates the whole predicate.
type Filter struct {
	Field        string `msgpack:"field" json:"field"`
	Value        string `msgpack:"value,omitempty" json:"value,omitempty"`
	Min          *int64 `msgpack:"min,omitempty" json:"min,omitempty"`
	Max          *int64 `msgpack:"max,omitempty" json:"max,omitempty"`
	MinExclusive bool   `msgpack:"minExclusive,omitempty" json:"minExclusive,omitempty"`
	MaxExclusive bool   `msgpack:"maxExclusive,omitempty" json:"maxExclusive,omitempty"`
	Complement   bool   `msgpack:"complement,omitempty" json:"complement,omitempty"`
}

func timestampField(o *Object, field string) (time.Time, bool) {
	switch field {
	case "CTime":
		return o.CTime, true
	case "MTime":
		return o.MTime, true
	case "PTime":
		return o.PTime, true
	case "DTime":
		return o.DTime, true
	}
	return time.Time{}, false
}

func stringField(o *Object, field string) (string, bool) {
	switch field {
	case "Type":
		return o.Type, true
	case "Language":
		return o.Language, true
	case "Charset":
		return o.Charset, true
	case "Encoding":
		return o.Encoding, true
	}
	return "", false
}

func (f *Filter) matchBounds(value int64) bool {
	if f.Min != nil {
		if f.MinExclusive {
			if value <= *f.Min {
				return false
			}
		} else if value < *f.Min {
			return false
		}
	}
	if f.Max != nil {
		if f.MaxExclusive {
			if value >= *f.Max {
				return false
			}
		} else if value > *f.Max {
			return false
		}
	}
	return true
}

func (f *Filter) Match(o *Object) (bool, error) {
	var matched bool

	if f.Field == "Size" {
		matched = f.matchBounds(o.Size)
	} else if value, ok := stringField(o, f.Field); ok {
		matched = value == f.Value
	} else if value, ok := timestampField(o, f.Field); ok {
		matched = f.matchBounds(value.Unix())
		if value.IsZero() {
			matched = false
		}
	} else {
		return false, fmt.Errorf("invalid filter field: %s", f.Field)
	}

	if f.Complement {
		matched = !matched
	}
	return matched, nil
}

// ListOptions drives the engine's list operation: a key range over the
// primary mapping, filters, an optional sort order and pagination.
type ListOptions struct {
	Start    []byte   `msgpack:"start,omitempty" json:"start,omitempty"`
	End      []byte   `msgpack:"end,omitempty" json:"end,omitempty"`
	SortKeys []string `msgpack:"sortKeys,omitempty" json:"sortKeys,omitempty"`
	Reverse  bool     `msgpack:"reverse,omitempty" json:"reverse,omitempty"`
	Filters  []Filter `msgpack:"filters,omitempty" json:"filters,omitempty"`
	Offset   int      `msgpack:"offset,omitempty" json:"offset,omitempty"`
	Limit    int      `msgpack:"limit,omitempty" json:"limit,omitempty"`
}
