package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/actionmesh-labs/actionmesh-go/handler"
	"github.com/actionmesh-labs/actionmesh-go/internal/materialize"
)

// load resolves a function name to an invocable bound function: registry
// lookup, module materialization, factory resolution, configuration merge
// and handler construction. Handler instances are built per dispatch and
// the merged configuration is recomputed every call.
func (e *Engine) load(ctx context.Context, log *slog.Logger, functionName string) (handler.Func, error) {
	desc, ok := e.registry.ByName(functionName)
	if !ok {
		return nil, &Error{Kind: KindLoad, Function: functionName, Err: ErrFunctionNotFound}
	}

	moduleDir, err := e.materializer.EnsurePresent(ctx, desc.ModuleName)
	if err != nil {
		return nil, classifyMaterialize(functionName, desc.ModuleName, err)
	}
	e.addModulePath(moduleDir)

	factory, ok := e.catalog.Resolve(desc.ModuleName, desc.ClassName)
	if !ok {
		err := fmt.Errorf("no handler factory registered for %s.%s", desc.ModuleName, desc.ClassName)
		log.Error("handler factory missing", "module", desc.ModuleName, "class", desc.ClassName)
		return nil, &Error{Kind: KindLoad, Function: functionName, Module: desc.ModuleName, Err: err}
	}

	merged := mergeConfiguration(e.baseConfig, desc.Configuration)
	instance, err := factory(log, moduleDir, merged)
	if err != nil {
		log.Error("handler construction failed", "module", desc.ModuleName, "class", desc.ClassName, "error", err)
		return nil, &Error{Kind: KindLoad, Function: functionName, Module: desc.ModuleName, Err: fmt.Errorf("construct %s.%s: %w", desc.ModuleName, desc.ClassName, err)}
	}
	fn, ok := instance.Func(functionName)
	if !ok {
		err := fmt.Errorf("handler %s.%s does not implement %q", desc.ModuleName, desc.ClassName, functionName)
		log.Error("bound function missing", "module", desc.ModuleName, "class", desc.ClassName, "function", functionName)
		return nil, &Error{Kind: KindLoad, Function: functionName, Module: desc.ModuleName, Err: err}
	}
	return fn, nil
}

func classifyMaterialize(functionName string, moduleName string, err error) *Error {
	kind := KindLoad
	var merr *materialize.Error
	if errors.As(err, &merr) {
		switch merr.Stage {
		case materialize.StageFetch:
			kind = KindFetch
		case materialize.StageExtract:
			kind = KindExtract
		}
	}
	return &Error{Kind: kind, Function: functionName, Module: moduleName, Err: err}
}

// mergeConfiguration overlays function-level overrides onto the base
// configuration (function keys win), then round-trips the result through
// JSON. The round trip is a sanitation step: values that do not serialize
// are dropped and everything left is a plain JSON type, so handlers never
// observe engine-internal values.
func mergeConfiguration(base map[string]any, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	sanitized := make(map[string]any, len(merged))
	for k, v := range merged {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		var plain any
		if err := json.Unmarshal(raw, &plain); err != nil {
			continue
		}
		sanitized[k] = plain
	}
	return sanitized
}
