package lens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// buildDefault populates a fresh registry with every builtin lens, per
// spec.md §5's library and the per-lens gas schedule in SPEC_FULL.md
// §C.4. Each lens charges its fixed GasCost (1 to 4 units; hashing and
// JSON cost 4) once per invocation; the charge does not grow with the
// size of the input.
func buildDefault() *Registry {
	r := NewRegistry()
	for _, e := range []Entry{
		{Signature: Signature{Name: "trim", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensTrim},
		{Signature: Signature{Name: "lowercase", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensLowercase},
		{Signature: Signature{Name: "uppercase", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensUppercase},
		{Signature: Signature{Name: "capitalize", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensCapitalize},
		{Signature: Signature{Name: "reverse", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensReverse},
		{Signature: Signature{Name: "substring", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensSubstring},
		{Signature: Signature{Name: "replace", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensReplace},
		{Signature: Signature{Name: "split", InputType: "string", OutputType: "list<string>", Trust: Pure, Deterministic: true}, GasCost: 2, Fn: lensSplit},
		{Signature: Signature{Name: "join", InputType: "list<string>", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 2, Fn: lensJoin},
		{Signature: Signature{Name: "first", InputType: "list<T>", OutputType: "T", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensFirst},
		{Signature: Signature{Name: "last", InputType: "list<T>", OutputType: "T", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensLast},
		{Signature: Signature{Name: "nth", InputType: "list<T>", OutputType: "T", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensNth},
		{Signature: Signature{Name: "slice", InputType: "list<T>", OutputType: "list<T>", Trust: Pure, Deterministic: true}, GasCost: 2, Fn: lensSlice},
		{Signature: Signature{Name: "length", InputType: "list<T>|map<V>|string", OutputType: "int", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensLength},
		{Signature: Signature{Name: "unique", InputType: "list<T>", OutputType: "list<T>", Trust: Pure, Deterministic: true}, GasCost: 3, Fn: lensUnique},
		{Signature: Signature{Name: "sort_by", InputType: "list<T>", OutputType: "list<T>", Trust: Pure, Deterministic: true}, GasCost: 4, Fn: lensSortBy},
		{Signature: Signature{Name: "filter", InputType: "list<T>", OutputType: "list<T>", Trust: Pure, Deterministic: true}, GasCost: 3, Fn: lensFilter},
		{Signature: Signature{Name: "map", InputType: "list<T>", OutputType: "list<V>", Trust: Pure, Deterministic: true}, GasCost: 3, Fn: lensMap},
		{Signature: Signature{Name: "ensure_list", InputType: "T", OutputType: "list<T>", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensEnsureList},
		{Signature: Signature{Name: "keys", InputType: "map<V>", OutputType: "list<string>", Trust: Pure, Deterministic: true}, GasCost: 2, Fn: lensKeys},
		{Signature: Signature{Name: "values", InputType: "map<V>", OutputType: "list<V>", Trust: Pure, Deterministic: true}, GasCost: 2, Fn: lensValues},
		{Signature: Signature{Name: "default", InputType: "T", OutputType: "T", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensDefault},
		{Signature: Signature{Name: "indent", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 2, Fn: lensIndent},
		{Signature: Signature{Name: "template", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 3, Fn: lensTemplate},
		{Signature: Signature{Name: "json", InputType: "T", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 4, Fn: lensJSON},
		{Signature: Signature{Name: "json_parse", InputType: "string", OutputType: "T", Trust: Pure, Deterministic: true}, GasCost: 4, Fn: lensJSONParse},
		{Signature: Signature{Name: "url_encode", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensURLEncode},
		{Signature: Signature{Name: "url_decode", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 1, Fn: lensURLDecode},
		{Signature: Signature{Name: "hash", InputType: "string", OutputType: "string", Trust: Pure, Deterministic: true}, GasCost: 4, Fn: lensHash},
	} {
		r.Register(e)
	}
	return r
}

func asString(v Value) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string-coercible value, got %T", v)
	}
}

func asList(v Value) ([]Value, error) {
	l, ok := v.([]Value)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	return l, nil
}

func asMap(v Value) (map[string]Value, error) {
	m, ok := v.(map[string]Value)
	if !ok {
		return nil, fmt.Errorf("expected map, got %T", v)
	}
	return m, nil
}

func asInt(v Value) (int, error) {
	switch x := v.(type) {
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	default:
		return 0, fmt.Errorf("expected integer argument, got %T", v)
	}
}

func argOr(positional []Value, i int, named map[string]Value, name string, fallback Value) Value {
	if i < len(positional) {
		return positional[i]
	}
	if named != nil {
		if v, ok := named[name]; ok {
			return v
		}
	}
	return fallback
}

func lensTrim(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(s), nil
}

var caser = cases.Lower(language.Und)
var upperCaser = cases.Upper(language.Und)
var titleCaser = cases.Title(language.Und)

func lensLowercase(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	return caser.String(s), nil
}

func lensUppercase(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	return upperCaser.String(s), nil
}

func lensCapitalize(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return s, nil
	}
	return titleCaser.String(s), nil
}

func lensReverse(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func lensSubstring(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	startV := argOr(positional, 0, named, "start", int64(0))
	start, err := asInt(startV)
	if err != nil {
		return nil, err
	}
	end := len(runes)
	if endV := argOr(positional, 1, named, "end", nil); endV != nil {
		end, err = asInt(endV)
		if err != nil {
			return nil, err
		}
	}
	if start < 0 || start > len(runes) || end < start || end > len(runes) {
		return nil, fmt.Errorf("substring bounds [%d:%d] out of range for length %d", start, end, len(runes))
	}
	return string(runes[start:end]), nil
}

func lensReplace(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	patV := argOr(positional, 0, named, "pattern", nil)
	repV := argOr(positional, 1, named, "replacement", nil)
	if patV == nil || repV == nil {
		return nil, fmt.Errorf("replace requires pattern and replacement arguments")
	}
	pat, err := asString(patV)
	if err != nil {
		return nil, err
	}
	rep, err := asString(repV)
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(s, pat, rep), nil
}

func lensSplit(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	sepV := argOr(positional, 0, named, "separator", nil)
	if sepV == nil {
		return nil, fmt.Errorf("split requires a separator argument")
	}
	sep, err := asString(sepV)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func lensJoin(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	sep, _ := asString(argOr(positional, 0, named, "separator", ""))
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i], err = asString(v)
		if err != nil {
			return nil, err
		}
	}
	return strings.Join(parts, sep), nil
}

func lensFirst(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return nil, fmt.Errorf("first: empty list")
	}
	return l[0], nil
}

func lensLast(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return nil, fmt.Errorf("last: empty list")
	}
	return l[len(l)-1], nil
}

func lensNth(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	idx, err := asInt(argOr(positional, 0, named, "index", int64(0)))
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(l) {
		return nil, fmt.Errorf("nth: index %d out of range for length %d", idx, len(l))
	}
	return l[idx], nil
}

func lensSlice(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	start, err := asInt(argOr(positional, 0, named, "start", int64(0)))
	if err != nil {
		return nil, err
	}
	end := len(l)
	if endV := argOr(positional, 1, named, "end", nil); endV != nil {
		end, err = asInt(endV)
		if err != nil {
			return nil, err
		}
	}
	if start < 0 || start > len(l) || end < start || end > len(l) {
		return nil, fmt.Errorf("slice bounds [%d:%d] out of range for length %d", start, end, len(l))
	}
	out := make([]Value, end-start)
	copy(out, l[start:end])
	return out, nil
}

func lensLength(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	switch x := input.(type) {
	case string:
		return int64(len([]rune(x))), nil
	case []Value:
		return int64(len(x)), nil
	case map[string]Value:
		return int64(len(x)), nil
	default:
		return nil, fmt.Errorf("length: unsupported type %T", input)
	}
}

func lensUnique(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := make([]Value, 0, len(l))
	for _, v := range l {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unique: %w", err)
		}
		key := norm.NFC.String(string(raw))
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func lensSortBy(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(l))
	copy(out, l)
	field, _ := asString(argOr(positional, 0, named, "field", ""))
	key := func(v Value) string {
		if m, ok := v.(map[string]Value); ok && field != "" {
			v = m[field]
		}
		raw, _ := json.Marshal(v)
		return norm.NFC.String(string(raw))
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })
	return out, nil
}

func lensFilter(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	field, _ := asString(argOr(positional, 0, named, "field", ""))
	wantV := argOr(positional, 1, named, "equals", nil)
	out := make([]Value, 0, len(l))
	for _, v := range l {
		var actual Value = v
		if field != "" {
			if m, ok := v.(map[string]Value); ok {
				actual = m[field]
			}
		}
		if wantV == nil {
			if truthy(actual) {
				out = append(out, v)
			}
			continue
		}
		if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", wantV) {
			out = append(out, v)
		}
	}
	return out, nil
}

func truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	default:
		return true
	}
}

func lensMap(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	l, err := asList(input)
	if err != nil {
		return nil, err
	}
	field, err := asString(argOr(positional, 0, named, "field", nil))
	if err != nil {
		return nil, fmt.Errorf("map requires a field argument")
	}
	out := make([]Value, len(l))
	for i, v := range l {
		if m, ok := v.(map[string]Value); ok {
			out[i] = m[field]
		}
	}
	return out, nil
}

func lensEnsureList(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	if l, ok := input.([]Value); ok {
		return l, nil
	}
	return []Value{input}, nil
}

func lensKeys(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	m, err := asMap(input)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Value, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out, nil
}

func lensValues(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	m, err := asMap(input)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Value, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out, nil
}

func lensDefault(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	if input != nil {
		if s, ok := input.(string); ok && s == "" {
			return argOr(positional, 0, named, "value", input), nil
		}
		return input, nil
	}
	return argOr(positional, 0, named, "value", nil), nil
}

func lensIndent(_ context.Context, input Value, positional []Value, named map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	n, err := asInt(argOr(positional, 0, named, "spaces", int64(2)))
	if err != nil {
		return nil, err
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n"), nil
}

func lensTemplate(_ context.Context, input Value, _ []Value, named map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	for k, v := range named {
		val, err := asString(v)
		if err != nil {
			return nil, err
		}
		s = strings.ReplaceAll(s, "{{"+k+"}}", val)
	}
	return s, nil
}

func lensJSON(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return norm.NFC.String(string(raw)), nil
}

func lensJSONParse(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("json_parse: %w", err)
	}
	return normalizeJSON(out), nil
}

// normalizeJSON converts encoding/json's float64-everywhere decoding into
// FACET's int64/float64 distinction where the decoded value is integral.
func normalizeJSON(v any) Value {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = normalizeJSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, e := range x {
			out[k] = normalizeJSON(e)
		}
		return out
	default:
		return x
	}
}

func lensURLEncode(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	return url.QueryEscape(s), nil
}

func lensURLDecode(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	out, err := url.QueryUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("url_decode: %w", err)
	}
	return out, nil
}

func lensHash(_ context.Context, input Value, _ []Value, _ map[string]Value) (Value, error) {
	s, err := asString(input)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:]), nil
}
