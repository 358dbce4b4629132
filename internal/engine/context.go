package engine

import (
	"fmt"
	"time"

	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/vk/burstfn/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// ContextValue renders an execution context as the `ctx` object seen by
// function code.
func ContextValue(ec *model.ExecutionContext) cty.Value {
	if ec == nil {
		ec = &model.ExecutionContext{}
	}
	return cty.ObjectVal(map[string]cty.Value{
		"request_id":    cty.StringVal(ec.RequestID),
		"method":        cty.StringVal(ec.Method),
		"function_name": cty.StringVal(ec.FunctionName),
		"user":          IdentityValue(ec.User),
		"payload":       ec.PayloadValue(),
		"query":         ctyconv.StringMap(ec.Query),
		"headers":       ctyconv.StringMap(ec.Headers),
	})
}

// IdentityValue renders an identity as an object, or null when id is nil.
func IdentityValue(id *model.Identity) cty.Value {
	if id == nil {
		return ctyconv.Null
	}
	claims, err := ctyconv.FromGo(id.Claims)
	if err != nil || claims.IsNull() {
		claims = cty.EmptyObjectVal
	}
	return cty.ObjectVal(map[string]cty.Value{
		"subject":    cty.StringVal(id.Subject),
		"issued_at":  timeValue(id.IssuedAt),
		"expires_at": timeValue(id.ExpiresAt),
		"claims":     claims,
	})
}

// ContextFromValue reads an execution context back from a `ctx`-shaped
// object. Unknown attributes are ignored and missing ones stay empty, so a
// caller may pass its own ctx, a partial object or null.
func ContextFromValue(v cty.Value) (*model.ExecutionContext, error) {
	ec := &model.ExecutionContext{}
	if v == cty.NilVal || v.IsNull() {
		return ec, nil
	}
	v, _ = v.UnmarkDeep()
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("context must be an object, got %s", ty.FriendlyName())
	}

	attrs := v.AsValueMap()
	var err error
	if ec.RequestID, err = optString(attrs, "request_id"); err != nil {
		return nil, err
	}
	if ec.Method, err = optString(attrs, "method"); err != nil {
		return nil, err
	}
	if ec.FunctionName, err = optString(attrs, "function_name"); err != nil {
		return nil, err
	}
	if p, ok := attrs["payload"]; ok {
		ec.Payload = p
	}
	if ec.Query, err = optStringMap(attrs, "query"); err != nil {
		return nil, err
	}
	if ec.Headers, err = optStringMap(attrs, "headers"); err != nil {
		return nil, err
	}
	if u, ok := attrs["user"]; ok && !u.IsNull() {
		if ec.User, err = identityFromValue(u); err != nil {
			return nil, err
		}
	}
	return ec, nil
}

func identityFromValue(v cty.Value) (*model.Identity, error) {
	raw, err := ctyconv.ToGo(v)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("user must be an object")
	}
	id := &model.Identity{Claims: map[string]any{}}
	id.Subject, _ = m["subject"].(string)
	if s, ok := m["issued_at"].(string); ok {
		id.IssuedAt, _ = time.Parse(time.RFC3339, s)
	}
	if s, ok := m["expires_at"].(string); ok {
		id.ExpiresAt, _ = time.Parse(time.RFC3339, s)
	}
	if c, ok := m["claims"].(map[string]any); ok {
		id.Claims = c
	}
	return id, nil
}

func optString(attrs map[string]cty.Value, name string) (string, error) {
	v, ok := attrs[name]
	if !ok || v.IsNull() {
		return "", nil
	}
	if v.Type() != cty.String || !v.IsKnown() {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return v.AsString(), nil
}

func optStringMap(attrs map[string]cty.Value, name string) (map[string]string, error) {
	v, ok := attrs[name]
	if !ok || v.IsNull() {
		return nil, nil
	}
	raw, err := ctyconv.ToGo(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", name)
	}
	out := make(map[string]string, len(m))
	for k, e := range m {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("%s.%s must be a string", name, k)
		}
		out[k] = s
	}
	return out, nil
}

func timeValue(t time.Time) cty.Value {
	if t.IsZero() {
		return cty.NullVal(cty.String)
	}
	return cty.StringVal(t.UTC().Format(time.RFC3339))
}
