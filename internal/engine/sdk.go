package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/vk/burstfn/internal/datastore"
	"github.com/vk/burstfn/internal/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

func dynamicParam(name string) function.Parameter {
	return function.Parameter{
		Name:             name,
		Type:             cty.DynamicPseudoType,
		AllowNull:        true,
		AllowDynamicType: true,
	}
}

var dynamicResult = function.StaticReturnType(cty.DynamicPseudoType)

// sdkFunctions binds the host's SDK surface to one call's context.
func sdkFunctions(ctx context.Context, host Host) map[string]function.Function {
	ctxParam := dynamicParam("ctx")
	claimsParam := dynamicParam("claims")

	return map[string]function.Function{
		"invoke": function.New(&function.Spec{
			Description: "Invokes another function by name and returns its result. A null name skips the call and returns null.",
			Params:      []function.Parameter{{Name: "name", Type: cty.String, AllowNull: true}},
			VarParam:    &ctxParam,
			Type:        dynamicResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				if len(args) > 2 {
					return cty.NilVal, fmt.Errorf("invoke takes a name and at most one context")
				}
				// Both arms of a conditional are evaluated, so a null name is
				// how function code guards a call.
				if args[0].IsNull() {
					return ctyconv.Null, nil
				}
				ec, err := ContextFromValue(optArg(args, 1))
				if err != nil {
					return cty.NilVal, function.NewArgError(1, err)
				}
				out, err := host.Invoke(ctx, args[0].AsString(), ec)
				if err != nil {
					return cty.NilVal, err
				}
				if out == cty.NilVal {
					return ctyconv.Null, nil
				}
				return out, nil
			},
		}),

		"get_token": function.New(&function.Spec{
			Description: "Issues a signed token for a subject.",
			Params: []function.Parameter{
				{Name: "subject", Type: cty.String},
				{Name: "expires_in", Type: cty.Number},
			},
			VarParam: &claimsParam,
			Type:     function.StaticReturnType(cty.String),
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				var seconds float64
				if err := gocty.FromCtyValue(args[1], &seconds); err != nil {
					return cty.NilVal, function.NewArgError(1, err)
				}
				var claims map[string]any
				if raw, err := ctyconv.ToGo(optArg(args, 2)); err != nil {
					return cty.NilVal, function.NewArgError(2, err)
				} else if raw != nil {
					m, ok := raw.(map[string]any)
					if !ok {
						return cty.NilVal, function.NewArgErrorf(2, "claims must be an object")
					}
					claims = m
				}
				tok, err := host.GetToken(args[0].AsString(), time.Duration(seconds*float64(time.Second)), claims)
				if err != nil {
					return cty.NilVal, err
				}
				return cty.StringVal(tok), nil
			},
		}),

		"parse_token": function.New(&function.Spec{
			Description: "Verifies a token; returns the identity or null.",
			Params:      []function.Parameter{{Name: "token", Type: cty.String, AllowNull: true}},
			Type:        dynamicResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				if args[0].IsNull() {
					return ctyconv.Null, nil
				}
				id, ok := host.ParseToken(args[0].AsString())
				if !ok {
					return ctyconv.Null, nil
				}
				return IdentityValue(id), nil
			},
		}),

		"shared_get": function.New(&function.Spec{
			Description: "Reads a key from the process-wide shared state.",
			Params:      []function.Parameter{{Name: "key", Type: cty.String}},
			Type:        dynamicResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				shared, err := sharedState(host)
				if err != nil {
					return cty.NilVal, err
				}
				v, ok := shared.Get(args[0].AsString())
				if !ok {
					return ctyconv.Null, nil
				}
				return ctyconv.FromGo(v)
			},
		}),

		"shared_set": function.New(&function.Spec{
			Description: "Writes a key to the process-wide shared state.",
			Params: []function.Parameter{
				{Name: "key", Type: cty.String},
				dynamicParam("value"),
			},
			Type: dynamicResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				shared, err := sharedState(host)
				if err != nil {
					return cty.NilVal, err
				}
				shared.Set(args[0].AsString(), args[1])
				return args[1], nil
			},
		}),

		"shared_delete": function.New(&function.Spec{
			Description: "Removes a key from the shared state; returns whether it existed.",
			Params:      []function.Parameter{{Name: "key", Type: cty.String}},
			Type:        function.StaticReturnType(cty.Bool),
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				shared, err := sharedState(host)
				if err != nil {
					return cty.NilVal, err
				}
				key := args[0].AsString()
				_, existed := shared.Get(key)
				shared.Delete(key)
				return cty.BoolVal(existed), nil
			},
		}),

		"db_get": function.New(&function.Spec{
			Description: "Reads a document; returns null when it does not exist.",
			Params: []function.Parameter{
				{Name: "collection", Type: cty.String},
				{Name: "id", Type: cty.String},
			},
			Type: dynamicResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				db, err := host.Database()
				if err != nil {
					return cty.NilVal, err
				}
				raw, err := db.Get(ctx, args[0].AsString(), args[1].AsString())
				if errors.Is(err, datastore.ErrNotFound) {
					return ctyconv.Null, nil
				}
				if err != nil {
					return cty.NilVal, err
				}
				return ctyconv.FromJSON(raw)
			},
		}),

		"db_put": function.New(&function.Spec{
			Description: "Stores a document, replacing any existing one.",
			Params: []function.Parameter{
				{Name: "collection", Type: cty.String},
				{Name: "id", Type: cty.String},
				dynamicParam("document"),
			},
			Type: dynamicResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				db, err := host.Database()
				if err != nil {
					return cty.NilVal, err
				}
				doc, err := ctyconv.ToJSON(args[2])
				if err != nil {
					return cty.NilVal, function.NewArgError(2, err)
				}
				if err := db.Put(ctx, args[0].AsString(), args[1].AsString(), doc); err != nil {
					return cty.NilVal, err
				}
				return args[2], nil
			},
		}),

		"db_delete": function.New(&function.Spec{
			Description: "Deletes a document.",
			Params: []function.Parameter{
				{Name: "collection", Type: cty.String},
				{Name: "id", Type: cty.String},
			},
			Type: function.StaticReturnType(cty.Bool),
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				db, err := host.Database()
				if err != nil {
					return cty.NilVal, err
				}
				if err := db.Delete(ctx, args[0].AsString(), args[1].AsString()); err != nil {
					return cty.NilVal, err
				}
				return cty.True, nil
			},
		}),

		"db_list": function.New(&function.Spec{
			Description: "Lists the documents of a collection as {id, data} objects.",
			Params:      []function.Parameter{{Name: "collection", Type: cty.String}},
			Type:        dynamicResult,
			Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
				db, err := host.Database()
				if err != nil {
					return cty.NilVal, err
				}
				docs, err := db.List(ctx, args[0].AsString())
				if err != nil {
					return cty.NilVal, err
				}
				if len(docs) == 0 {
					return cty.EmptyTupleVal, nil
				}
				items := make([]cty.Value, 0, len(docs))
				for _, d := range docs {
					data, err := ctyconv.FromJSON(d.Data)
					if err != nil {
						return cty.NilVal, fmt.Errorf("document %q: %w", d.ID, err)
					}
					items = append(items, cty.ObjectVal(map[string]cty.Value{
						"id":   cty.StringVal(d.ID),
						"data": data,
					}))
				}
				return cty.TupleVal(items), nil
			},
		}),
	}
}

func optArg(args []cty.Value, i int) cty.Value {
	if i < len(args) {
		return args[i]
	}
	return ctyconv.Null
}

var errNoShared = errors.New("shared state is unavailable")

func sharedState(host Host) (*model.SharedState, error) {
	if s := host.Shared(); s != nil {
		return s, nil
	}
	return nil, errNoShared
}
