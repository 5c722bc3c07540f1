package runtime

import (
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/wasm"
)

// checkImports rejects modules importing anything the runtime does not
// provide. Unknown functions are collected into one MissingImportsError; a
// known function with the wrong signature is reported on its own.
func (r *Runtime) checkImports(compiled wazero.CompiledModule) error {
	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		if mod != r.cfg.HostModule {
			missing = append(missing, mod+"#"+name)
			continue
		}
		err := abi.Check(mod, name, funcType(def))
		if err == nil {
			continue
		}
		if errors.Is(err, &errors.MissingImportsError{}) {
			missing = append(missing, mod+"#"+name)
			continue
		}
		return err
	}
	if len(missing) > 0 {
		return errors.NewMissingImportsError(missing)
	}
	return nil
}

func funcType(def api.FunctionDefinition) wasm.FuncType {
	return wasm.FuncType{
		Params:  valTypes(def.ParamTypes()),
		Results: valTypes(def.ResultTypes()),
	}
}

func valTypes(types []api.ValueType) []wasm.ValType {
	if len(types) == 0 {
		return nil
	}
	out := make([]wasm.ValType, len(types))
	for i, t := range types {
		out[i] = wasm.ValType(t)
	}
	return out
}
