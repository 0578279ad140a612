package templates

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"sync"
)

// keyOrders maps a live object map to its source key order. Entries exist only
// while the render that built the map is running.
var keyOrders sync.Map

// orderScope records the objects converted for one render so they can be
// forgotten once it finishes.
type orderScope struct {
	ptrs []uintptr
}

func (s *orderScope) track(m map[string]any, keys []string) {
	if s == nil || len(keys) < 2 {
		return
	}
	ptr := reflect.ValueOf(m).Pointer()
	keyOrders.Store(ptr, keys)
	s.ptrs = append(s.ptrs, ptr)
}

func (s *orderScope) release() {
	for _, ptr := range s.ptrs {
		keyOrders.Delete(ptr)
	}
	s.ptrs = nil
}

func orderedKeys(m map[string]any) []string {
	if v, ok := keyOrders.Load(reflect.ValueOf(m).Pointer()); ok {
		keys := v.([]string)
		if len(keys) == len(m) {
			return keys
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// encodeOrdered writes v as compact JSON, keeping the source key order of any
// object built from a payload.
func encodeOrdered(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range orderedKeys(t) {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeOrdered(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeOrdered(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
