package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"github.com/actionmesh-labs/actionmesh-go/handler"
)

// openapiSuffix short-circuits dispatch to the spec generator, bypassing
// routing and materialization entirely.
const openapiSuffix = "openapi.yaml"

// Dispatch resolves path to a registered action function, invokes it with
// the request parameters merged with values extracted from the path, and
// normalizes the result: maps, slices and structs are serialized to compact
// JSON text; strings, byte slices and primitives pass through unchanged.
//
// Path parameters override same-named request parameters — the URL is
// authoritative. Failures are logged and returned as *Error; nothing is
// retried and partial results are never produced.
func (e *Engine) Dispatch(ctx context.Context, path string, params map[string]any) (any, error) {
	log := e.logger.With("invocation_id", uuid.NewString(), "path", path)

	if strings.TrimSpace(path) == "" {
		log.Error("dispatch rejected", "error", ErrPathRequired)
		return nil, &Error{Kind: KindRouting, Err: ErrPathRequired}
	}
	path = "/" + strings.TrimLeft(path, "/")

	if strings.HasSuffix(path, openapiSuffix) {
		doc, err := e.OpenAPI()
		if err != nil {
			log.Error("openapi generation failed", "error", err)
			return nil, &Error{Kind: KindLoad, Err: fmt.Errorf("generate openapi document: %w", err)}
		}
		return doc, nil
	}

	desc, pathParams, ok := e.registry.Resolve(path)
	if !ok {
		log.Error("no route matched")
		return nil, &Error{Kind: KindRouting, Err: fmt.Errorf("%w: %q", ErrNoRoute, path)}
	}
	log = log.With("function", desc.FunctionName, "module", desc.ModuleName)

	merged := make(map[string]any, len(params)+len(pathParams))
	for k, v := range params {
		merged[k] = v
	}
	for k, v := range pathParams {
		merged[k] = v
	}

	fn, err := e.load(ctx, log, desc.FunctionName)
	if err != nil {
		return nil, err
	}

	log.Info("invoking function")
	result, err := invoke(ctx, fn, merged)
	if err != nil {
		log.Error("invocation failed", "error", err)
		return nil, &Error{Kind: KindInvocation, Function: desc.FunctionName, Module: desc.ModuleName, Err: err}
	}

	normalized, err := normalizeResult(result)
	if err != nil {
		log.Error("result serialization failed", "error", err)
		return nil, &Error{Kind: KindInvocation, Function: desc.FunctionName, Module: desc.ModuleName, Err: err}
	}
	return normalized, nil
}

// invoke calls the bound function exactly once, converting a panic inside
// the handler into an error with the stack preserved in the message.
func invoke(ctx context.Context, fn handler.Func, params map[string]any) (result any, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("handler panicked: %v\n%s", v, debug.Stack())
		}
	}()
	return fn(ctx, params)
}

// normalizeResult serializes structured values to compact JSON text and
// passes text and primitives through unchanged.
func normalizeResult(result any) (any, error) {
	switch result.(type) {
	case nil, string, []byte:
		return result, nil
	}
	switch kindOfValue(result) {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("serialize result: %w", err)
		}
		return string(raw), nil
	}
	return result, nil
}

func kindOfValue(v any) reflect.Kind {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Invalid
		}
		rv = rv.Elem()
	}
	return rv.Kind()
}
