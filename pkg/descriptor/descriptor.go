package descriptor

import (
	"fmt"
	"regexp"
	"strings"
)

// Role names the position a declared parameter occupies in a request.
type Role string

const (
	RolePath   Role = "path"
	RoleQuery  Role = "query"
	RoleHeader Role = "header"
	RoleBody   Role = "body"
)

// Binding associates one declared parameter with its role.
type Binding struct {
	Role     Role
	Name     string
	Required bool
}

// Descriptor is the static, immutable definition of one remote operation.
// Descriptors are created once at setup time and shared read-only across
// concurrent invocations.
type Descriptor struct {
	Key          string
	Service      string
	Method       string
	PathTemplate string
	Bindings     []Binding

	// NewResult, when set, allocates the value the success body decodes
	// into. Nil means the caller supplies the target per invocation.
	NewResult func() any
}

var placeholderRe = regexp.MustCompile(`\{([^{}/]+)\}`)

var allowedMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {}, "PATCH": {},
}

// New validates and returns a Descriptor. It enforces:
//   - method is one of GET/POST/PUT/DELETE/PATCH
//   - every {name} placeholder in the template has exactly one PATH
//     binding with a matching name, and no PATH binding is dangling
//   - at most one BODY binding
func New(key, service, method, pathTemplate string, bindings []Binding) (*Descriptor, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if _, ok := allowedMethods[method]; !ok {
		return nil, fmt.Errorf("operation %s: unsupported method %q", key, method)
	}
	if key == "" {
		return nil, fmt.Errorf("operation key must not be empty")
	}
	if !strings.HasPrefix(pathTemplate, "/") {
		return nil, fmt.Errorf("operation %s: path template must start with '/'", key)
	}

	placeholders := map[string]int{}
	for _, m := range placeholderRe.FindAllStringSubmatch(pathTemplate, -1) {
		placeholders[m[1]]++
	}
	for name, n := range placeholders {
		if n > 1 {
			return nil, fmt.Errorf("operation %s: duplicate placeholder {%s}", key, name)
		}
	}

	bodies := 0
	pathBindings := map[string]int{}
	for _, b := range bindings {
		switch b.Role {
		case RolePath:
			pathBindings[b.Name]++
		case RoleBody:
			bodies++
		case RoleQuery, RoleHeader:
		default:
			return nil, fmt.Errorf("operation %s: unknown binding role %q", key, b.Role)
		}
		if b.Name == "" && b.Role != RoleBody {
			return nil, fmt.Errorf("operation %s: %s binding with empty name", key, b.Role)
		}
	}
	if bodies > 1 {
		return nil, fmt.Errorf("operation %s: more than one body binding", key)
	}
	for name, n := range pathBindings {
		if n > 1 {
			return nil, fmt.Errorf("operation %s: duplicate path binding %q", key, name)
		}
		if _, ok := placeholders[name]; !ok {
			return nil, fmt.Errorf("operation %s: path binding %q has no {%s} placeholder", key, name, name)
		}
	}
	for name := range placeholders {
		if _, ok := pathBindings[name]; !ok {
			return nil, fmt.Errorf("operation %s: placeholder {%s} has no path binding", key, name)
		}
	}

	d := &Descriptor{
		Key:          key,
		Service:      service,
		Method:       method,
		PathTemplate: pathTemplate,
		Bindings:     append([]Binding(nil), bindings...),
	}
	return d, nil
}

// BodyBinding returns the body binding if the descriptor declares one.
func (d *Descriptor) BodyBinding() (Binding, bool) {
	for _, b := range d.Bindings {
		if b.Role == RoleBody {
			return b, true
		}
	}
	return Binding{}, false
}

// Placeholders lists the {name} variables of the path template.
func (d *Descriptor) Placeholders() []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(d.PathTemplate, -1) {
		out = append(out, m[1])
	}
	return out
}
