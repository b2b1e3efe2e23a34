package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExists backs the "unique" rule in tests.
type fakeExists struct {
	taken map[string]bool // "table.column.value" -> exists
	err   error
}

func (f *fakeExists) Exists(_ context.Context, table, column, value string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.taken[table+"."+column+"."+value], nil
}

func TestParseRules(t *testing.T) {
	rs, err := ParseRules("required | alphanumeric | between: 3, 25")
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, Rule{Name: "required"}, rs[0])
	assert.Equal(t, Rule{Name: "alphanumeric"}, rs[1])
	assert.Equal(t, Rule{Name: "between", Params: []string{"3", "25"}}, rs[2])
}

func TestParseRulesRejectsBadSpecs(t *testing.T) {
	cases := map[string]string{
		"unknown name":      "required|alphanumqric",
		"missing params":    "between:3",
		"extra params":      "required:1",
		"non-integer bound": "min:three",
		"unique arity":      "unique:users",
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules(spec)
			assert.Error(t, err)
		})
	}
}

func TestMustParseRulesPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseRules("requird") })
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields(map[string]string{
		"username": "required|alphanumeric",
		"password": "required|secure",
	})
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Len(t, fields["username"], 2)

	_, err = ParseFields(map[string]string{"username": "requird"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")
}

func TestValidateRequiredField(t *testing.T) {
	v := New(nil)
	fields := map[string]Ruleset{"username": MustParseRules("required")}

	_, errs, err := v.Validate(context.Background(), map[string]string{}, fields, nil)
	require.NoError(t, err)
	assert.Equal(t, "The username is required", errs["username"])

	// fields outside the ruleset never gain entries
	_, errs, err = v.Validate(context.Background(),
		map[string]string{"stray": "x"}, fields, nil)
	require.NoError(t, err)
	assert.NotContains(t, errs, "stray")

	_, errs, err = v.Validate(context.Background(),
		map[string]string{"username": "   "}, fields, nil)
	require.NoError(t, err)
	assert.Contains(t, errs, "username")
}

func TestValidatePredicates(t *testing.T) {
	v := New(nil)
	cases := []struct {
		name string
		spec string
		data map[string]string
		pass bool
	}{
		{"email ok", "email", map[string]string{"f": "john@example.com"}, true},
		{"email bad", "email", map[string]string{"f": "not-an-email"}, false},
		{"email absent passes", "email", map[string]string{}, true},
		{"min short", "min:3", map[string]string{"f": "ab"}, false},
		{"min exact", "min:3", map[string]string{"f": "abc"}, true},
		{"min counts runes", "min:3", map[string]string{"f": "äöü"}, true},
		{"max over", "max:2", map[string]string{"f": "abc"}, false},
		{"max absent passes", "max:2", map[string]string{}, true},
		{"between low", "between:3,5", map[string]string{"f": "ab"}, false},
		{"between in", "between:3,5", map[string]string{"f": "abcd"}, true},
		{"between high", "between:3,5", map[string]string{"f": "abcdef"}, false},
		{"alphanumeric ok", "alphanumeric", map[string]string{"f": "abc123"}, true},
		{"alphanumeric space", "alphanumeric", map[string]string{"f": "abc 123"}, false},
		{"alphanumeric empty", "alphanumeric", map[string]string{"f": ""}, false},
		{"secure weak", "secure", map[string]string{"f": "abc"}, false},
		{"secure ok", "secure", map[string]string{"f": "Abcdef1@"}, true},
		{"secure absent fails", "secure", map[string]string{}, false},
		{"secure no digit", "secure", map[string]string{"f": "Abcdefg@"}, false},
		{"secure bad char", "secure", map[string]string{"f": "Abcdef1#"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := map[string]Ruleset{"f": MustParseRules(tc.spec)}
			_, errs, err := v.Validate(context.Background(), tc.data, fields, nil)
			require.NoError(t, err)
			if tc.pass {
				assert.NotContains(t, errs, "f")
			} else {
				assert.Contains(t, errs, "f")
			}
		})
	}
}

func TestValidateSecureAllowsBang(t *testing.T) {
	// '!' is part of the accepted special-character set.
	v := New(nil)
	fields := map[string]Ruleset{"password": MustParseRules("secure")}
	_, errs, err := v.Validate(context.Background(),
		map[string]string{"password": "Abcdef1!"}, fields, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateSame(t *testing.T) {
	v := New(nil)
	fields := map[string]Ruleset{"password2": MustParseRules("same:password")}

	for _, tc := range []struct {
		name string
		data map[string]string
		pass bool
	}{
		{"both equal", map[string]string{"password": "x", "password2": "x"}, true},
		{"mismatch", map[string]string{"password": "x", "password2": "y"}, false},
		{"both absent", map[string]string{}, true},
		{"one absent", map[string]string{"password": "x"}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, errs, err := v.Validate(context.Background(), tc.data, fields, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.pass, len(errs) == 0)
		})
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	v := New(nil)
	fields := map[string]Ruleset{
		"username": MustParseRules("required|alphanumeric|between:3,25"),
	}
	// fails required first; alphanumeric and between are skipped
	_, errs, err := v.Validate(context.Background(),
		map[string]string{"username": " "}, fields, nil)
	require.NoError(t, err)
	assert.Equal(t, "The username is required", errs["username"])

	// passes required, fails alphanumeric before between
	_, errs, err = v.Validate(context.Background(),
		map[string]string{"username": "a b"}, fields, nil)
	require.NoError(t, err)
	assert.Equal(t, "The username should have only letters and numbers", errs["username"])
}

func TestValidateCleanedInputs(t *testing.T) {
	v := New(nil)
	fields := map[string]Ruleset{
		"username": MustParseRules("required"),
		"email":    MustParseRules("email"),
	}
	inputs, _, err := v.Validate(context.Background(),
		map[string]string{"username": "  john  ", "stray": "drop me"}, fields, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"username": "john"}, inputs)
}

func TestValidateMessages(t *testing.T) {
	v := New(nil)
	fields := map[string]Ruleset{"username": MustParseRules("between:3,25")}

	_, errs, err := v.Validate(context.Background(),
		map[string]string{"username": "ab"}, fields, nil)
	require.NoError(t, err)
	assert.Equal(t, "The username must have between 3 and 25 characters", errs["username"])

	// custom templates receive the field name first, then the parameters
	custom := Messages{"username": {"between": "Pick a %s of %s to %s characters"}}
	_, errs, err = v.Validate(context.Background(),
		map[string]string{"username": "ab"}, fields, custom)
	require.NoError(t, err)
	assert.Equal(t, "Pick a username of 3 to 25 characters", errs["username"])
}

func TestValidateUnique(t *testing.T) {
	v := New(&fakeExists{taken: map[string]bool{"users.username.john": true}})
	fields := map[string]Ruleset{"username": MustParseRules("unique:users,username")}

	_, errs, err := v.Validate(context.Background(),
		map[string]string{"username": "john"}, fields, nil)
	require.NoError(t, err)
	assert.Equal(t, "The username already exists", errs["username"])

	_, errs, err = v.Validate(context.Background(),
		map[string]string{"username": "jane"}, fields, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)

	// absent field never reaches the store
	_, errs, err = v.Validate(context.Background(), map[string]string{}, fields, nil)
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestValidateUniqueStoreError(t *testing.T) {
	boom := errors.New("connection refused")
	v := New(&fakeExists{err: boom})
	fields := map[string]Ruleset{"username": MustParseRules("unique:users,username")}

	_, _, err := v.Validate(context.Background(),
		map[string]string{"username": "john"}, fields, nil)
	assert.ErrorIs(t, err, boom)
}
