// Package persistence implements the self-describing JSON encoding used
// throughout the asset store: every persistable value round-trips through
// an envelope of the form
//
//	{"object_source": [portableModulePath, className, version, ctorParams]}
//
// so that decoding can locate the Go type that produced a value without a
// side-channel schema. Concrete value types the engine does not control
// (time.Time, time.Duration, sets, byte buffers, priority queues) register
// through the same mechanism via Registry.RegisterBuiltins.
package persistence

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"assetstore.evalgo.org/applog"
)

// Codec binds a Go type to the portable identity it is encoded/decoded
// under, plus the functions that convert to and from its ctor-parameter
// tree.
type Codec struct {
	ModulePath string // portable module path, e.g. "[]/store"
	ClassName  string // qualified type name, e.g. "Permissions"
	Version    string

	// Encode returns the ctor-parameter tree for v (already a concrete
	// value of the type this Codec was registered for).
	Encode func(v interface{}) (map[string]interface{}, error)

	// Decode builds a value from its ctor-parameter tree and the version
	// string that was current when it was encoded.
	Decode func(params map[string]interface{}, version string) (interface{}, error)
}

func (c *Codec) key() string { return c.ModulePath + "#" + c.ClassName }

// Registry is the build-time type registry that replaces the source
// system's dynamic module-path class lookup: every persistable Go type
// registers its Codec once, keyed by (reflect.Type) for encoding and by
// (modulePath, className) for decoding.
type Registry struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]*Codec
	byName  map[string]*Codec
	logger  *applog.Context
	unknown []string // names seen during Decode that had no registered Codec
}

// NewRegistry returns an empty Registry. Call RegisterBuiltins to add the
// standard external-type converters (time.Time, time.Duration, sets, byte
// buffers, priority queues).
func NewRegistry() *Registry {
	return &Registry{
		byType: map[reflect.Type]*Codec{},
		byName: map[string]*Codec{},
		logger: applog.Base.WithField("component", "persistence"),
	}
}

// Register binds codec to the Go type sample belongs to.
func (r *Registry) Register(sample interface{}, codec *Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := reflect.TypeOf(sample)
	r.byType[t] = codec
	r.byName[codec.key()] = codec
}

// RawEnvelope is the wire shape of a persisted value.
type RawEnvelope struct {
	ObjectSource []json.RawMessage `json:"object_source"`
}

// Opaque preserves an envelope whose class locator did not resolve to any
// registered Codec, so that decoding never silently drops data.
type Opaque struct {
	ModulePath string
	ClassName  string
	Version    string
	Params     map[string]interface{}
}

// Nothing is the sentinel distinguishing "absent" from "null"; it encodes
// with a null object_source.
type nothingType struct{}

// Nothing is the package-level sentinel value.
var Nothing = nothingType{}

// IsNothing reports whether v is the Nothing sentinel.
func IsNothing(v interface{}) bool {
	_, ok := v.(nothingType)
	return ok
}

// Encode produces the {"object_source": [...]} envelope for v. Native JSON
// types (string, number, bool, nil, map, slice) pass through unchanged.
// Nothing encodes as {"object_source": null}. Anything else must have a
// registered Codec or implement Persistable directly.
func (r *Registry) Encode(v interface{}) (interface{}, error) {
	switch {
	case v == nil:
		return nil, nil
	case IsNothing(v):
		return map[string]interface{}{"object_source": nil}, nil
	}

	if isNativeJSON(v) {
		return encodeNative(r, v)
	}

	if p, ok := v.(Persistable); ok {
		params := p.CtorParams()
		encodedParams, err := encodeNative(r, params)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"object_source": []interface{}{p.ModulePath(), p.ClassName(), p.Version(), encodedParams},
		}, nil
	}

	r.mu.RLock()
	codec, ok := r.byType[reflect.TypeOf(v)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %T is not json-serializable and has no registered codec", ErrSerialization, v)
	}
	params, err := codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %T: %v", ErrSerialization, v, err)
	}
	encodedParams, err := encodeNative(r, params)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"object_source": []interface{}{codec.ModulePath, codec.ClassName, codec.Version, encodedParams},
	}, nil
}

// Persistable is implemented by asset-store types that know how to encode
// themselves into a ctor-parameter tree, sparing them a Codec registration.
type Persistable interface {
	ModulePath() string
	ClassName() string
	Version() string
	CtorParams() map[string]interface{}
}

func isNativeJSON(v interface{}) bool {
	switch v.(type) {
	case string, bool, nil,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		map[string]interface{}, []interface{}:
		return true
	default:
		return false
	}
}

func encodeNative(r *Registry, v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			enc, err := r.Encode(val)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			enc, err := r.Encode(val)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	default:
		if isNativeJSON(v) || v == nil {
			return v, nil
		}
		return r.Encode(v)
	}
}

// Marshal is Encode followed by json.Marshal, the common case of writing a
// value to disk or to an HTTP response body.
func (r *Registry) Marshal(v interface{}) ([]byte, error) {
	enc, err := r.Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(enc)
}

// Decode parses raw JSON and reconstructs registered types, recursing into
// nested object_source envelopes. Unknown class locators decode to an
// Opaque value carrying the full payload (never dropped).
func (r *Registry) Decode(data []byte) (interface{}, error) {
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return r.decodeValue(generic)
}

// Unmarshal decodes into v's pointed-to value when v is a non-nil pointer
// receiving a plain JSON structure (convenience wrapper for callers that do
// not need class-locator resolution, e.g. simple config files).
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (r *Registry) decodeValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		if src, ok := t["object_source"]; ok && len(t) == 1 {
			return r.decodeEnvelope(src)
		}
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			dec, err := r.decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			dec, err := r.decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *Registry) decodeEnvelope(src interface{}) (interface{}, error) {
	if src == nil {
		return Nothing, nil
	}
	arr, ok := src.([]interface{})
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("%w: malformed object_source %#v", ErrSerialization, src)
	}
	modulePath, _ := arr[0].(string)
	className, _ := arr[1].(string)
	version, _ := arr[2].(string)
	rawParams, _ := arr[3].(map[string]interface{})

	decodedParams := make(map[string]interface{}, len(rawParams))
	for k, val := range rawParams {
		dec, err := r.decodeValue(val)
		if err != nil {
			return nil, err
		}
		decodedParams[k] = dec
	}

	r.mu.RLock()
	codec, ok := r.byName[modulePath+"#"+className]
	r.mu.RUnlock()
	if !ok {
		r.logger.WithField("class", className).Warn("persistence: unknown object_source class, preserving as opaque")
		r.mu.Lock()
		r.unknown = append(r.unknown, className)
		r.mu.Unlock()
		return Opaque{ModulePath: modulePath, ClassName: className, Version: version, Params: decodedParams}, nil
	}
	value, err := codec.Decode(decodedParams, version)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrSerialization, className, err)
	}
	return value, nil
}

// UnknownClasses returns the class names Decode has encountered with no
// registered Codec, most-recent last. Intended for diagnostics/tests.
func (r *Registry) UnknownClasses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.unknown))
	copy(out, r.unknown)
	return out
}
