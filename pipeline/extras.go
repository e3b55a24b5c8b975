package pipeline

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Extras holds reply fields a typed struct does not name. They are carried
// forward and re-serialized untouched so no stage silently drops data.
type Extras map[string]json.RawMessage

var knownKeysCache sync.Map // reflect.Type -> map[string]struct{}

func knownKeys(t reflect.Type) map[string]struct{} {
	if cached, ok := knownKeysCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		keys[name] = struct{}{}
	}
	knownKeysCache.Store(t, keys)
	return keys
}

// unmarshalWithExtras decodes data onto known (a pointer to a struct whose
// type has no custom unmarshaller) and merges unrecognised keys into extra.
// Fields present in data overwrite; fields absent keep their value.
func unmarshalWithExtras(data []byte, known any, extra *Extras) error {
	if err := json.Unmarshal(data, known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	keys := knownKeys(reflect.TypeOf(known).Elem())
	for k, v := range all {
		if _, ok := keys[k]; ok {
			continue
		}
		if *extra == nil {
			*extra = Extras{}
		}
		(*extra)[k] = v
	}
	return nil
}

// marshalWithExtras encodes known and folds extra keys in alongside it.
// Typed fields win on a name clash.
func marshalWithExtras(known any, extra Extras) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}
