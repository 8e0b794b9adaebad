package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVersion(t *testing.T, s string) Version {
	t.Helper()
	v, err := ParseVersion(s)
	require.NoError(t, err)
	return v
}

func TestVersionCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.0.0", 0},
		{"1.2", "1.10", -1},
		{"2.0.0", "1.9.9", 1},
		{"2.0.0rc1", "2.0.0", -1},
		{"2.0.0a1", "2.0.0b1", -1},
		{"2.0.0b1", "2.0.0rc1", -1},
		{"2.0.0rc1", "2.0.0rc2", -1},
	}
	for _, c := range cases {
		got := mustVersion(t, c.a).Compare(mustVersion(t, c.b))
		assert.Equal(t, c.want, got, "%s vs %s", c.a, c.b)
	}
}

func TestVersionSatisfies(t *testing.T) {
	cases := []struct {
		version string
		spec    Specifier
		want    bool
	}{
		{"1.6.1", Specifier{"==", "1.6.1"}, true},
		{"1.6.1", Specifier{"==", "1.6.0"}, false},
		{"1.6.1", Specifier{">=", "1.6"}, true},
		{"1.5.9", Specifier{">=", "1.6"}, false},
		{"2.17.2", Specifier{"<", "3"}, true},
		{"3.0", Specifier{"<", "3"}, false},
		{"0.6.4", Specifier{"~=", "0.6.0"}, true},
		{"0.7.0", Specifier{"~=", "0.6.0"}, false},
		{"1.9", Specifier{"~=", "1.4"}, true},
		{"2.0", Specifier{"~=", "1.4"}, false},
		{"1.0", Specifier{"!=", "1.0"}, false},
	}
	for _, c := range cases {
		got, err := mustVersion(t, c.version).Satisfies(c.spec)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s %s%s", c.version, c.spec.Op, c.spec.Version)
	}
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "one.two", "1..2", "1.0-final", "v1.0"} {
		_, err := ParseVersion(s)
		assert.Error(t, err, "version %q", s)
	}
}
