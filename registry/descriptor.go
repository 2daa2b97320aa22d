// Package registry holds the declarative function registry: the table of
// action function descriptors an engine instance serves, parsed from a
// versioned manifest and compiled into a path resolver.
//
// The registry is immutable once built. Descriptors are matched against
// request paths in declaration order; the first full match wins.
package registry

import (
	"fmt"
	"strings"
)

// Methods accepted for a function descriptor.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// Parameter locations.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InBody   = "body"
)

// Response shapes.
const (
	ResponseList      = "list"
	ResponseDict      = "dict"
	ResponsePrimitive = "primitive"
)

// FunctionDescriptor declares one action function: its unique name, the
// module and handler class that implement it, the path template it answers,
// and its parameter and response schemas. Optional per-function configuration
// overrides the manifest's base configuration key-by-key at load time.
type FunctionDescriptor struct {
	FunctionName  string          `yaml:"function_name" json:"function_name"`
	ModuleName    string          `yaml:"module_name" json:"module_name"`
	ClassName     string          `yaml:"class_name" json:"class_name"`
	Path          string          `yaml:"path" json:"path"`
	Method        string          `yaml:"method" json:"method"`
	Summary       string          `yaml:"summary,omitempty" json:"summary,omitempty"`
	Parameters    []ParameterSpec `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Response      ResponseSpec    `yaml:"response" json:"response"`
	Configuration map[string]any  `yaml:"configuration,omitempty" json:"configuration,omitempty"`
}

// ParameterSpec describes one call parameter and where it travels.
type ParameterSpec struct {
	Name       string         `yaml:"name" json:"name"`
	In         string         `yaml:"in" json:"in"`
	Type       string         `yaml:"type" json:"type"`
	Required   bool           `yaml:"required" json:"required"`
	ChildType  string         `yaml:"child_type,omitempty" json:"child_type,omitempty"`
	Properties []PropertySpec `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// PropertySpec describes one field of an object or list parameter/response.
// Properties nest arbitrarily deep for object and list-of-object shapes.
type PropertySpec struct {
	Name       string         `yaml:"name" json:"name"`
	Type       string         `yaml:"type" json:"type"`
	ChildType  string         `yaml:"child_type,omitempty" json:"child_type,omitempty"`
	Properties []PropertySpec `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// ResponseSpec describes the shape of a function's result.
type ResponseSpec struct {
	Type       string         `yaml:"type" json:"type"`
	ChildType  string         `yaml:"child_type,omitempty" json:"child_type,omitempty"`
	Properties []PropertySpec `yaml:"properties,omitempty" json:"properties,omitempty"`
}

func (d FunctionDescriptor) validate(idx int) error {
	if strings.TrimSpace(d.FunctionName) == "" {
		return fmt.Errorf("functions[%d].function_name is required", idx)
	}
	if strings.TrimSpace(d.ModuleName) == "" {
		return fmt.Errorf("functions[%d].module_name is required", idx)
	}
	if strings.TrimSpace(d.ClassName) == "" {
		return fmt.Errorf("functions[%d].class_name is required", idx)
	}
	if strings.TrimSpace(d.Path) == "" {
		return fmt.Errorf("functions[%d].path is required", idx)
	}
	if !strings.HasPrefix(d.Path, "/") {
		return fmt.Errorf("functions[%d].path must start with /: %q", idx, d.Path)
	}
	if err := validateTemplate(d.Path); err != nil {
		return fmt.Errorf("functions[%d].path: %w", idx, err)
	}
	switch strings.ToUpper(strings.TrimSpace(d.Method)) {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
	default:
		return fmt.Errorf("functions[%d].method must be one of GET, POST, PUT, PATCH, DELETE: %q", idx, d.Method)
	}
	for j, param := range d.Parameters {
		if strings.TrimSpace(param.Name) == "" {
			return fmt.Errorf("functions[%d].parameters[%d].name is required", idx, j)
		}
		switch strings.ToLower(strings.TrimSpace(param.In)) {
		case InPath, InQuery, InHeader, InBody:
		default:
			return fmt.Errorf("functions[%d].parameters[%d].in must be one of path, query, header, body: %q", idx, j, param.In)
		}
		if strings.TrimSpace(param.Type) == "" {
			return fmt.Errorf("functions[%d].parameters[%d].type is required", idx, j)
		}
		if err := validateProperties(param.Properties); err != nil {
			return fmt.Errorf("functions[%d].parameters[%d]: %w", idx, j, err)
		}
	}
	if err := d.Response.validate(); err != nil {
		return fmt.Errorf("functions[%d].response: %w", idx, err)
	}
	return nil
}

func (r ResponseSpec) validate() error {
	switch strings.ToLower(strings.TrimSpace(r.Type)) {
	case ResponseList:
		if strings.TrimSpace(r.ChildType) == "" {
			return fmt.Errorf("child_type is required for list responses")
		}
	case ResponseDict:
		if len(r.Properties) == 0 {
			return fmt.Errorf("properties are required for dict responses")
		}
	case ResponsePrimitive:
	default:
		return fmt.Errorf("type must be one of list, dict, primitive: %q", r.Type)
	}
	return validateProperties(r.Properties)
}

func validateProperties(props []PropertySpec) error {
	for i, prop := range props {
		if strings.TrimSpace(prop.Name) == "" {
			return fmt.Errorf("properties[%d].name is required", i)
		}
		if strings.TrimSpace(prop.Type) == "" {
			return fmt.Errorf("properties[%d].type is required", i)
		}
		if err := validateProperties(prop.Properties); err != nil {
			return fmt.Errorf("properties[%d]: %w", i, err)
		}
	}
	return nil
}
