package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/mcuadros/go-defaults"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// Presence matches any value, as long as the key exists in the actual document.
const Presence = "<<PRESENCE>>"

// JSONAssertOptions control how documents are compared.
type JSONAssertOptions struct {
	// IgnoreExtraKeys drops object keys of actual that expected does not mention.
	IgnoreExtraKeys bool     `default:"true"`
	IgnoredFields   []string `default:""`
}

// JSONOption configures a JSONAsserter.
type JSONOption func(*JSONAssertOptions)

// JSONAsserter compares JSON documents structurally and reports a gojsondiff delta.
type JSONAsserter struct {
	t       TestingT
	options JSONAssertOptions
}

func NewJSONAsserter(t TestingT, opts ...JSONOption) *JSONAsserter {
	o := JSONAssertOptions{}
	defaults.SetDefaults(&o)
	for _, opt := range opts {
		opt(&o)
	}
	return &JSONAsserter{t: t, options: o}
}

func WithIgnoreExtraKeys(v bool) JSONOption {
	return func(o *JSONAssertOptions) { o.IgnoreExtraKeys = v }
}

func WithIgnoredFields(fields ...string) JSONOption {
	return func(o *JSONAssertOptions) { o.IgnoredFields = fields }
}

// MustJSON marshals v or panics.
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Assert reports a failure when actual does not match expected.
func (ja *JSONAsserter) Assert(actual, expected string) bool {
	d := ja.Diff(actual, expected)
	if d == "" {
		return true
	}
	ja.t.Errorf("JSON mismatch:\n%s", d)
	return false
}

// Diff returns a readable delta, or "" when the documents match.
func (ja *JSONAsserter) Diff(actual, expected string) string {
	var exp, act any
	if err := json.Unmarshal([]byte(expected), &exp); err != nil {
		return fmt.Sprintf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(actual), &act); err != nil {
		return fmt.Sprintf("invalid actual JSON: %v", err)
	}

	// gojsondiff compares objects only
	if _, ok := exp.([]any); ok {
		exp, act = map[string]any{"items": exp}, map[string]any{"items": act}
	}

	ja.reconcile(exp, act)

	expBytes, _ := json.Marshal(exp)
	actBytes, _ := json.Marshal(act)
	delta, err := gojsondiff.New().Compare(expBytes, actBytes)
	if err != nil {
		return fmt.Sprintf("JSON comparison failed: %v", err)
	}
	if !delta.Modified() {
		return ""
	}

	var expObj map[string]any
	_ = json.Unmarshal(expBytes, &expObj)
	out, err := formatter.NewAsciiFormatter(expObj, formatter.AsciiFormatterConfig{ShowArrayIndex: true}).Format(delta)
	if err != nil {
		return fmt.Sprintf("formatting JSON diff: %v", err)
	}
	return out
}

// reconcile walks both documents in step, resolving placeholders, ignored fields and
// extra keys in place.
func (ja *JSONAsserter) reconcile(expected, actual any) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return
		}
		for _, f := range ja.options.IgnoredFields {
			delete(exp, f)
			delete(act, f)
		}
		for k, v := range exp {
			av, present := act[k]
			if s, ok := v.(string); ok && s == Presence && present {
				exp[k] = av
				continue
			}
			ja.reconcile(v, av)
		}
		if ja.options.IgnoreExtraKeys {
			for k := range act {
				if _, ok := exp[k]; !ok {
					delete(act, k)
				}
			}
		}
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return
		}
		for i := range exp {
			if i >= len(act) {
				return
			}
			if s, ok := exp[i].(string); ok && s == Presence {
				exp[i] = act[i]
				continue
			}
			ja.reconcile(exp[i], act[i])
		}
	}
}
