// Package validator implements the declarative field validation used by the
// auth forms. Rules for a field are written as a pipe-separated list
// ("required|alphanumeric|between:3,25"); each rule is either a bare name or
// name:param1,param2 with parameters trimmed. Rule strings are parsed once
// into a Ruleset before any request is served, so an unknown rule name or a
// malformed parameter is a startup configuration error instead of a silently
// skipped check.
package validator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ExistenceChecker answers whether a value already occupies a column in the
// backing store. The repository layer implements it for the "unique" rule.
type ExistenceChecker interface {
	Exists(ctx context.Context, table, column, value string) (bool, error)
}

// Messages maps field name -> rule name -> custom error message. A custom
// message overrides the default template for that field and rule. Templates
// use %s verbs and are formatted with the field name first, then the rule
// parameters in declared order.
type Messages map[string]map[string]string

// Rule is one parsed validation check for a field.
type Rule struct {
	Name   string
	Params []string
}

// Ruleset is the ordered sequence of checks declared for one field.
type Ruleset []Rule

// paramCount is the closed registry of rule names and the exact number of
// parameters each accepts. Names outside this map are rejected at parse time.
var paramCount = map[string]int{
	"required":     0,
	"email":        0,
	"min":          1,
	"max":          1,
	"between":      2,
	"same":         1,
	"alphanumeric": 0,
	"secure":       0,
	"unique":       2,
}

// intParams lists how many leading parameters of a rule must parse as
// integers (length bounds).
var intParams = map[string]int{
	"min":     1,
	"max":     1,
	"between": 2,
}

// ParseRules parses a rule specification string into a Ruleset. Empty
// segments between pipes are ignored; everything else must resolve against
// the registry with the right parameter count.
func ParseRules(spec string) (Ruleset, error) {
	var rs Ruleset
	for _, part := range strings.Split(spec, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := part
		var params []string
		if i := strings.Index(part, ":"); i >= 0 {
			name = strings.TrimSpace(part[:i])
			for _, p := range strings.Split(part[i+1:], ",") {
				params = append(params, strings.TrimSpace(p))
			}
		}
		want, ok := paramCount[name]
		if !ok {
			return nil, fmt.Errorf("validator: unknown rule %q", name)
		}
		if len(params) != want {
			return nil, fmt.Errorf("validator: rule %q takes %d parameter(s), got %d", name, want, len(params))
		}
		for i := 0; i < intParams[name]; i++ {
			if _, err := strconv.Atoi(params[i]); err != nil {
				return nil, fmt.Errorf("validator: rule %q parameter %q is not an integer", name, params[i])
			}
		}
		rs = append(rs, Rule{Name: name, Params: params})
	}
	return rs, nil
}

// MustParseRules is ParseRules for rulesets fixed at compile time; it panics
// on a malformed specification.
func MustParseRules(spec string) Ruleset {
	rs, err := ParseRules(spec)
	if err != nil {
		panic(err)
	}
	return rs
}

// ParseFields parses a whole form definition (field name -> rule string).
func ParseFields(fields map[string]string) (map[string]Ruleset, error) {
	out := make(map[string]Ruleset, len(fields))
	for field, spec := range fields {
		rs, err := ParseRules(spec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		out[field] = rs
	}
	return out, nil
}

// Validator evaluates parsed rulesets against submitted form data.
type Validator struct {
	Exists ExistenceChecker
}

func New(e ExistenceChecker) *Validator { return &Validator{Exists: e} }

// Validate checks data against the rulesets. The first returned map holds the
// trimmed values of exactly the fields named by the rulesets; the second
// holds at most one message per field, produced by the first rule in declared
// order that failed (remaining rules for a failed field are skipped). The
// error return is reserved for store failures from the "unique" rule.
func (v *Validator) Validate(ctx context.Context, data map[string]string, fields map[string]Ruleset, messages Messages) (map[string]string, map[string]string, error) {
	inputs := make(map[string]string, len(fields))
	errs := make(map[string]string)
	for field, rs := range fields {
		if raw, ok := data[field]; ok {
			inputs[field] = strings.TrimSpace(raw)
		}
		for _, rule := range rs {
			pass, err := v.check(ctx, rule, data, field)
			if err != nil {
				return nil, nil, err
			}
			if !pass {
				errs[field] = formatMessage(field, rule, messages)
				break
			}
		}
	}
	return inputs, errs, nil
}

// formatMessage resolves the message for a failed rule: a custom per-field
// per-rule message wins over the default template. Arguments beyond the
// template's verb count are dropped so short templates like "The %s already
// exists" can ignore rule parameters.
func formatMessage(field string, r Rule, messages Messages) string {
	tmpl, ok := messages[field][r.Name]
	if !ok {
		tmpl = defaultMessages[r.Name]
	}
	args := make([]any, 0, 1+len(r.Params))
	args = append(args, field)
	for _, p := range r.Params {
		args = append(args, p)
	}
	if n := strings.Count(tmpl, "%s"); n < len(args) {
		args = args[:n]
	}
	return fmt.Sprintf(tmpl, args...)
}
