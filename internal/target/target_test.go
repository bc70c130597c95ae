package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	for _, raw := range []string{"test", "", "a.b-c_d", "path/to/thing"} {
		parsed, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.True(t, parsed.Literal())
		assert.Nil(t, parsed.Keys())
	}
}

func TestParseDynamic(t *testing.T) {
	parsed, err := Parse("a:{a},b:{b},c:{c}")
	require.NoError(t, err)
	assert.False(t, parsed.Literal())
	assert.Equal(t, []string{"a", "b", "c"}, parsed.Keys())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"unclosed", "build-{variant"},
		{"unopened", "build-variant}"},
		{"nested", "build-{a{b}}"},
		{"empty placeholder", "build-{}"},
		{"bad name", "build-{a b}"},
		{"reversed", "}build-{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.template)
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Equal(t, tt.template, syntaxErr.Template)
		})
	}
}

func TestMatchLiteral(t *testing.T) {
	parsed := MustParse("test")

	match := parsed.Match("test")
	assert.True(t, match.Matched)
	assert.Nil(t, match.Substitutions)

	assert.False(t, parsed.Match("testx").Matched)
	assert.False(t, parsed.Match("not_test").Matched)
}

func TestMatchDynamic(t *testing.T) {
	parsed := MustParse("{test}")

	match := parsed.Match("test")
	require.True(t, match.Matched)
	assert.Equal(t, map[string]string{"test": "test"}, match.Substitutions)

	parsed = MustParse("a:{a},b:{b},c:{c}")
	match = parsed.Match("a:1,b:2,c:3")
	require.True(t, match.Matched)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, match.Substitutions)

	// Anchored: trailing text defeats the match entirely.
	assert.False(t, parsed.Match("a:1,b:2,c:3,d:4").Matched)
	assert.False(t, parsed.Match("xa:1,b:2,c:3").Matched)
}

func TestMatchCaptureCharset(t *testing.T) {
	parsed := MustParse("v-{version}")

	assert.True(t, parsed.Match("v-1.2.3").Matched)
	assert.True(t, parsed.Match("v-rc-1_beta").Matched)
	assert.False(t, parsed.Match("v-1/2").Matched)
	assert.False(t, parsed.Match("v-").Matched)
}

func TestRender(t *testing.T) {
	parsed := MustParse("a:{a},b:{b},c:{c}")

	out, err := parsed.Render(map[string]string{"a": "1", "b": "2", "c": "3"})
	require.NoError(t, err)
	assert.Equal(t, "a:1,b:2,c:3", out)

	literal := MustParse("plain")
	out, err = literal.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}

func TestRenderMissingKey(t *testing.T) {
	parsed := MustParse("a:{a},b:{b}")

	_, err := parsed.Render(map[string]string{"a": "1"})
	require.Error(t, err)

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "b", unresolved.Key)
}

// Round trips through delimiter-adjacent dots exercised a rendering offset
// bug in an earlier revision.
func TestRoundTripWithDots(t *testing.T) {
	in := MustParse("asdf.{test}")
	out := MustParse("1234.{test}")

	match := in.Match("asdf.1234")
	require.True(t, match.Matched)

	rendered, err := out.Render(match.Substitutions)
	require.NoError(t, err)
	assert.Equal(t, "1234.1234", rendered)

	in = MustParse("{test}.asdf")
	out = MustParse("{test}.1234")

	match = in.Match("1234.asdf")
	require.True(t, match.Matched)

	rendered, err = out.Render(match.Substitutions)
	require.NoError(t, err)
	assert.Equal(t, "1234.1234", rendered)
}

func TestMatchRenderRoundTrip(t *testing.T) {
	parsed := MustParse("deploy:{env}:{region}")
	subs := map[string]string{"env": "prod", "region": "us-east-1"}

	rendered, err := parsed.Render(subs)
	require.NoError(t, err)

	match := parsed.Match(rendered)
	require.True(t, match.Matched)
	assert.Equal(t, subs, match.Substitutions)
}
