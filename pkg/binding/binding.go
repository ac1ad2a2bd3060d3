package binding

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"callbridge/pkg/descriptor"
)

// Reason classifies why a resolve failed before any network activity.
type Reason string

const (
	MissingPathArgument   Reason = "missing_path_argument"
	MissingRequiredHeader Reason = "missing_required_header"
)

// BindingError reports caller misuse detected while resolving arguments
// against a descriptor. It never reaches the network.
type BindingError struct {
	Reason    Reason
	Operation string
	Param     string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("operation %s: %s: %s", e.Operation, e.Reason, e.Param)
}

// Args carries the runtime argument values of one invocation, keyed by
// declared parameter name. A nil value behaves the same as an absent key.
type Args map[string]any

// QueryParam is one resolved query pair. Order follows the descriptor's
// binding order.
type QueryParam struct {
	Key   string
	Value string
}

// RequestSpec is the concrete request produced for one invocation. It is
// owned exclusively by that invocation and discarded after dispatch.
type RequestSpec struct {
	Method  string
	Path    string
	Query   []QueryParam
	Header  http.Header
	Body    any
	HasBody bool
}

// URL renders path plus encoded query string.
func (s *RequestSpec) URL() string {
	if len(s.Query) == 0 {
		return s.Path
	}
	v := url.Values{}
	for _, q := range s.Query {
		v.Add(q.Key, q.Value)
	}
	return s.Path + "?" + v.Encode()
}

// Resolve materializes a RequestSpec from a descriptor and argument values.
// It is a pure function: no side effects, identical inputs produce
// structurally identical specs.
//
// Rules:
//   - path arguments must be present and non-nil; the value substitutes
//     into the template verbatim (string conversion only)
//   - absent optional query parameters are omitted entirely; empty-string
//     values are included verbatim
//   - required headers must be present; optional absent headers are omitted
//   - the body value, when present, is attached opaque and unserialized
func Resolve(d *descriptor.Descriptor, args Args) (*RequestSpec, error) {
	spec := &RequestSpec{
		Method: d.Method,
		Path:   d.PathTemplate,
		Header: http.Header{},
	}

	for _, b := range d.Bindings {
		val, ok := lookup(args, b.Name)
		switch b.Role {
		case descriptor.RolePath:
			if !ok {
				return nil, &BindingError{Reason: MissingPathArgument, Operation: d.Key, Param: b.Name}
			}
			seg := url.PathEscape(stringify(val))
			spec.Path = strings.ReplaceAll(spec.Path, "{"+b.Name+"}", seg)
		case descriptor.RoleQuery:
			if !ok {
				if b.Required {
					return nil, &BindingError{Reason: MissingPathArgument, Operation: d.Key, Param: b.Name}
				}
				continue
			}
			spec.Query = append(spec.Query, QueryParam{Key: b.Name, Value: stringify(val)})
		case descriptor.RoleHeader:
			if !ok {
				if b.Required {
					return nil, &BindingError{Reason: MissingRequiredHeader, Operation: d.Key, Param: b.Name}
				}
				continue
			}
			// http.Header keys are canonicalized, so duplicate supplies
			// collapse with last write winning.
			spec.Header.Set(b.Name, stringify(val))
		case descriptor.RoleBody:
			if !ok {
				continue
			}
			spec.Body = val
			spec.HasBody = true
		}
	}
	return spec, nil
}

func lookup(args Args, name string) (any, bool) {
	if args == nil {
		return nil, false
	}
	v, ok := args[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// stringify converts argument values for path/query/header positions. No
// implicit coercion beyond plain string conversion.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
