package element

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// Parse decodes a single JSON document into a Value. Trailing data after the
// document is an error.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing element: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parsing element: unexpected trailing data")
	}

	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// literals.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", t.String(), err)
		}
		return Float(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			arr := Array{}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			obj := Object{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key %v is not a string", keyTok)
				}
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				obj[key] = item
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		}
	}

	return nil, fmt.Errorf("unexpected token %v", tok)
}

// Marshal encodes v as JSON. Object keys are written in sorted order so that
// equal values always produce identical bytes.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}

	switch v := v.(type) {
	case Undefined, Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(v)))
	case Number:
		f := v.Canonical()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("marshaling element: unsupported number %v", f)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case String:
		b, err := json.Marshal(string(v))
		if err != nil {
			return err
		}
		buf.Write(b)
	case Binary:
		buf.WriteByte('"')
		buf.WriteString(base64.StdEncoding.EncodeToString(v))
		buf.WriteByte('"')
	case Guid:
		buf.WriteByte('"')
		buf.WriteString(v.String())
		buf.WriteByte('"')
	case Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		keys := make([]string, 0, len(v))
		for k, item := range v {
			if IsUndefined(item) {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(name)
			buf.WriteByte(':')
			if err := writeValue(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		panic(fmt.Sprintf("element: unexpected value %T", v))
	}

	return nil
}

// Stringify renders v as JSON, or a placeholder when v cannot be encoded.
func Stringify(v Value) string {
	b, err := Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%s>", v.Kind())
	}
	return string(b)
}

func (v Undefined) MarshalJSON() ([]byte, error) { return Marshal(v) }
func (v Null) MarshalJSON() ([]byte, error)      { return Marshal(v) }
func (v Bool) MarshalJSON() ([]byte, error)      { return Marshal(v) }
func (v Number) MarshalJSON() ([]byte, error)    { return Marshal(v) }
func (v String) MarshalJSON() ([]byte, error)    { return Marshal(v) }
func (v Array) MarshalJSON() ([]byte, error)     { return Marshal(v) }
func (v Object) MarshalJSON() ([]byte, error)    { return Marshal(v) }
func (v Binary) MarshalJSON() ([]byte, error)    { return Marshal(v) }
func (v Guid) MarshalJSON() ([]byte, error)      { return Marshal(v) }

// Raw holds a Value decoded from JSON. It is meant for struct fields that
// carry arbitrary documents.
type Raw struct {
	Value Value
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Raw) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	r.Value = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Raw) MarshalJSON() ([]byte, error) {
	return Marshal(r.Value)
}
