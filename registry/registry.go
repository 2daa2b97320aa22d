package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches one {name} placeholder in a path template.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// route is one compiled path template. Placeholders match exactly one
// non-empty path segment; literal characters match exactly.
type route struct {
	descriptor FunctionDescriptor
	pattern    *regexp.Regexp
	params     []string
}

// Registry is the immutable function table. Resolution walks routes in
// declaration order and returns the first full match, so overlapping
// templates are disambiguated by the manifest author's ordering, not by
// specificity.
type Registry struct {
	routes []route
	byName map[string]int
}

// New compiles a registry from an ordered descriptor list. Function names
// must be unique and every path template must compile.
func New(functions []FunctionDescriptor) (*Registry, error) {
	r := &Registry{
		routes: make([]route, 0, len(functions)),
		byName: make(map[string]int, len(functions)),
	}
	for i, fn := range functions {
		name := strings.TrimSpace(fn.FunctionName)
		if name == "" {
			return nil, fmt.Errorf("functions[%d]: function name is required", i)
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("functions[%d]: duplicate function name %q", i, name)
		}
		pattern, params, err := compileTemplate(fn.Path)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", name, err)
		}
		r.byName[name] = len(r.routes)
		r.routes = append(r.routes, route{descriptor: fn, pattern: pattern, params: params})
	}
	return r, nil
}

// Resolve matches a request path against the registry. The whole path must
// match a template; prefix matches are misses. Extracted placeholder values
// are returned keyed by placeholder name.
func (r *Registry) Resolve(path string) (FunctionDescriptor, map[string]string, bool) {
	for i := range r.routes {
		rt := &r.routes[i]
		match := rt.pattern.FindStringSubmatch(path)
		if match == nil {
			continue
		}
		params := make(map[string]string, len(rt.params))
		for j, name := range rt.params {
			params[name] = match[j+1]
		}
		return rt.descriptor, params, true
	}
	return FunctionDescriptor{}, nil, false
}

// ByName looks a descriptor up by its unique function name.
func (r *Registry) ByName(name string) (FunctionDescriptor, bool) {
	idx, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return FunctionDescriptor{}, false
	}
	return r.routes[idx].descriptor, true
}

// Functions returns the descriptors in declaration order.
func (r *Registry) Functions() []FunctionDescriptor {
	out := make([]FunctionDescriptor, len(r.routes))
	for i := range r.routes {
		out[i] = r.routes[i].descriptor
	}
	return out
}

// Modules returns the distinct module names referenced by the registry, in
// first-reference order.
func (r *Registry) Modules() []string {
	seen := make(map[string]struct{}, len(r.routes))
	var out []string
	for i := range r.routes {
		name := r.routes[i].descriptor.ModuleName
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// compileTemplate turns a path template into an anchored regexp. Each
// {name} placeholder becomes a named group matching one /-free segment;
// everything else is quoted literally.
func compileTemplate(path string) (*regexp.Regexp, []string, error) {
	var b strings.Builder
	b.WriteString("^")
	var params []string
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(path, -1) {
		b.WriteString(regexp.QuoteMeta(path[last:loc[0]]))
		name := path[loc[2]:loc[3]]
		params = append(params, name)
		b.WriteString("(?P<")
		b.WriteString(name)
		b.WriteString(">[^/]+)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(path[last:]))
	b.WriteString("$")

	pattern, err := regexp.Compile(b.String())
	if err != nil {
		return nil, nil, fmt.Errorf("compile path template %q: %w", path, err)
	}
	return pattern, params, nil
}

// validateTemplate rejects malformed or duplicated placeholders before a
// template reaches compileTemplate.
func validateTemplate(path string) error {
	stripped := placeholderPattern.ReplaceAllString(path, "")
	if strings.ContainsAny(stripped, "{}") {
		return fmt.Errorf("malformed placeholder in template %q", path)
	}
	seen := make(map[string]struct{})
	for _, match := range placeholderPattern.FindAllStringSubmatch(path, -1) {
		if _, ok := seen[match[1]]; ok {
			return fmt.Errorf("duplicate placeholder %q in template %q", match[1], path)
		}
		seen[match[1]] = struct{}{}
	}
	return nil
}
