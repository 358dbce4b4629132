package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/vk/burstfn/internal/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// stdFunctions is the go-cty standard library exposed to function code.
var stdFunctions = map[string]function.Function{
	"abs":          stdlib.AbsoluteFunc,
	"ceil":         stdlib.CeilFunc,
	"chomp":        stdlib.ChompFunc,
	"chunklist":    stdlib.ChunklistFunc,
	"coalesce":     stdlib.CoalesceFunc,
	"coalescelist": stdlib.CoalesceListFunc,
	"compact":      stdlib.CompactFunc,
	"concat":       stdlib.ConcatFunc,
	"contains":     stdlib.ContainsFunc,
	"csvdecode":    stdlib.CSVDecodeFunc,
	"distinct":     stdlib.DistinctFunc,
	"element":      stdlib.ElementFunc,
	"flatten":      stdlib.FlattenFunc,
	"floor":        stdlib.FloorFunc,
	"format":       stdlib.FormatFunc,
	"formatdate":   stdlib.FormatDateFunc,
	"formatlist":   stdlib.FormatListFunc,
	"indent":       stdlib.IndentFunc,
	"join":         stdlib.JoinFunc,
	"jsondecode":   stdlib.JSONDecodeFunc,
	"jsonencode":   stdlib.JSONEncodeFunc,
	"keys":         stdlib.KeysFunc,
	"length":       stdlib.LengthFunc,
	"lookup":       stdlib.LookupFunc,
	"lower":        stdlib.LowerFunc,
	"max":          stdlib.MaxFunc,
	"merge":        stdlib.MergeFunc,
	"min":          stdlib.MinFunc,
	"parseint":     stdlib.ParseIntFunc,
	"pow":          stdlib.PowFunc,
	"range":        stdlib.RangeFunc,
	"regex":        stdlib.RegexFunc,
	"regexall":     stdlib.RegexAllFunc,
	"regexreplace": stdlib.RegexReplaceFunc,
	"replace":      stdlib.ReplaceFunc,
	"reverse":      stdlib.ReverseListFunc,
	"setunion":     stdlib.SetUnionFunc,
	"slice":        stdlib.SliceFunc,
	"sort":         stdlib.SortFunc,
	"split":        stdlib.SplitFunc,
	"strlen":       stdlib.StrlenFunc,
	"strrev":       stdlib.ReverseFunc,
	"substr":       stdlib.SubstrFunc,
	"timeadd":      stdlib.TimeAddFunc,
	"title":        stdlib.TitleFunc,
	"tobool":       stdlib.MakeToFunc(cty.Bool),
	"tonumber":     stdlib.MakeToFunc(cty.Number),
	"tostring":     stdlib.MakeToFunc(cty.String),
	"trim":         stdlib.TrimFunc,
	"trimprefix":   stdlib.TrimPrefixFunc,
	"trimspace":    stdlib.TrimSpaceFunc,
	"trimsuffix":   stdlib.TrimSuffixFunc,
	"upper":        stdlib.UpperFunc,
	"values":       stdlib.ValuesFunc,
	"zipmap":       stdlib.ZipmapFunc,
}

// UUIDFunc returns a random UUID string.
var UUIDFunc = function.New(&function.Spec{
	Description: "Returns a new random UUID.",
	Type:        function.StaticReturnType(cty.String),
	Impl: func([]cty.Value, cty.Type) (cty.Value, error) {
		return cty.StringVal(uuid.NewString()), nil
	},
})

// TimestampFunc returns the current UTC time in RFC 3339 format.
var TimestampFunc = function.New(&function.Spec{
	Description: "Returns the current UTC time.",
	Type:        function.StaticReturnType(cty.String),
	Impl: func([]cty.Value, cty.Type) (cty.Value, error) {
		return cty.StringVal(time.Now().UTC().Format(time.RFC3339)), nil
	},
})

// FailFunc raises a runtime error with the given message.
var FailFunc = function.New(&function.Spec{
	Description: "Raises a runtime error.",
	Params: []function.Parameter{
		{Name: "message", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.NilVal, &model.RuntimeError{Message: args[0].AsString()}
	},
})

// pureFunctions is the table available to module locals.
func pureFunctions(ctx context.Context, lib *handlers.Handlers) map[string]function.Function {
	out := make(map[string]function.Function, len(stdFunctions)+8)
	for name, fn := range stdFunctions {
		out[name] = fn
	}
	out["uuid"] = UUIDFunc
	out["timestamp"] = TimestampFunc
	out["fail"] = FailFunc
	for name, fn := range lib.PureFunctions(ctx) {
		out[name] = fn
	}
	return out
}

// callFunctions is the table layered over pureFunctions for one call.
func callFunctions(ctx context.Context, host Host, lib *handlers.Handlers) map[string]function.Function {
	out := lib.Functions(ctx)
	if out == nil {
		out = make(map[string]function.Function)
	}
	if host != nil {
		for name, fn := range sdkFunctions(ctx, host) {
			out[name] = fn
		}
	}
	return out
}
