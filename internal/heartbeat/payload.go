// Package heartbeat validates and records periodic telemetry submitted by
// authenticated tenant agents.
//
// Every payload field is optional.  Numeric fields are bounded, and any
// top-level key the schema does not name is carried through in Extra
// instead of being rejected.
package heartbeat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds a single submission.
const MaxBodyBytes = 64 << 10

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("heartbeat payload invalid")

// Payload is the versioned metrics document.  Nil means "not reported".
type Payload struct {
	SchemaVersion  *int     `json:"schema_version,omitempty" validate:"omitempty,gte=1,lte=1000"`
	AppVersion     *string  `json:"app_version,omitempty" validate:"omitempty,max=64"`
	UptimeSeconds  *int64   `json:"uptime_seconds,omitempty" validate:"omitempty,gte=0"`
	QueueDepth     *int64   `json:"queue_depth,omitempty" validate:"omitempty,gte=0"`
	ActiveUsers    *int64   `json:"active_users,omitempty" validate:"omitempty,gte=0"`
	ErrorRate      *float64 `json:"error_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	ResponseTimeMS *float64 `json:"response_time_ms,omitempty" validate:"omitempty,gte=0"`
	SeatsUsed      *int64   `json:"seats_used,omitempty" validate:"omitempty,gte=0"`
	StorageBytes   *int64   `json:"storage_bytes,omitempty" validate:"omitempty,gte=0"`
	AIRequests     *int64   `json:"ai_requests,omitempty" validate:"omitempty,gte=0"`

	Extra map[string]any `json:"extra,omitempty"`
}

// FieldError describes one rejected field by its wire name.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every rejected field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "heartbeat: invalid payload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ByField groups messages per field, the shape the wire format uses.
func (e *ValidationError) ByField() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.Message)
	}
	return out
}

// fieldIndex maps each wire name to its Payload field.  Keys match
// exactly: "Error_Rate" is an unknown key, not error_rate.
var fieldIndex = func() map[string]int {
	m := map[string]int{}
	t := reflect.TypeOf(Payload{})
	for i := 0; i < t.NumField(); i++ {
		m[jsonName(t.Field(i))] = i
	}
	return m
}()

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	return name
}

// Decode parses body.  An empty body is an empty payload.  Unknown
// top-level keys are folded into Extra, and an explicit "extra" object
// wins on key collisions.
func Decode(body []byte) (*Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &Payload{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "body", Message: "must be a JSON object"}}}
	}

	var (
		p     Payload
		extra map[string]any
		bad   []FieldError
	)
	pv := reflect.ValueOf(&p).Elem()
	for k, v := range raw {
		if i, ok := fieldIndex[k]; ok {
			if err := json.Unmarshal(v, pv.Field(i).Addr().Interface()); err != nil {
				bad = append(bad, FieldError{Field: k, Message: typeMessage(err)})
			}
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("heartbeat: decode %q: %w", k, err)
		}
		if extra == nil {
			extra = map[string]any{}
		}
		extra[k] = val
	}
	if len(bad) > 0 {
		sort.Slice(bad, func(i, j int) bool { return bad[i].Field < bad[j].Field })
		return nil, &ValidationError{Fields: bad}
	}

	for k, v := range p.Extra {
		if extra == nil {
			extra = map[string]any{}
		}
		extra[k] = v
	}
	p.Extra = extra
	return &p, nil
}

func typeMessage(err error) string {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return "must be of type " + wireType(ute.Type)
	}
	return "is invalid"
}

// ReadBody reads at most MaxBodyBytes from r.
func ReadBody(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxBodyBytes {
		return nil, &ValidationError{Fields: []FieldError{{Field: "body", Message: "too large"}}}
	}
	return b, nil
}

func wireType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int64:
		return "integer"
	case reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Map:
		return "object"
	default:
		return t.Kind().String()
	}
}

/*──────────────────────────── validation ───────────────────────────────────*/

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}()

// Validate checks every bound and reports all failures at once.
func (p *Payload) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range ves {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	sort.Slice(out.Fields, func(i, j int) bool { return out.Fields[i].Field < out.Fields[j].Field })
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
