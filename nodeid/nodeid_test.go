package nodeid_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/broadcaster/nodeid"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want nodeid.NodeID
	}{
		{
			name: "function",
			raw:  "test_basic.py::test_ok",
			want: nodeid.NodeID{Raw: "test_basic.py::test_ok", File: "test_basic.py", Function: "test_ok"},
		},
		{
			name: "nested suites",
			raw:  "tests/test_api.py::TestUser::TestCreate::test_admin",
			want: nodeid.NodeID{
				Raw:      "tests/test_api.py::TestUser::TestCreate::test_admin",
				File:     "tests/test_api.py",
				Classes:  []string{"TestUser", "TestCreate"},
				Function: "test_admin",
			},
		},
		{
			name: "parametrized",
			raw:  "test_basic.py::test_ok[1]",
			want: nodeid.NodeID{
				Raw:       "test_basic.py::test_ok[1]",
				File:      "test_basic.py",
				Function:  "test_ok",
				Params:    "1",
				HasParams: true,
			},
		},
		{
			name: "nested brackets kept verbatim",
			raw:  "t.py::test_x[a[0]-b::c]",
			want: nodeid.NodeID{
				Raw:       "t.py::test_x[a[0]-b::c]",
				File:      "t.py",
				Function:  "test_x",
				Params:    "a[0]-b::c",
				HasParams: true,
			},
		},
		{
			name: "empty params",
			raw:  "t.py::test_x[]",
			want: nodeid.NodeID{Raw: "t.py::test_x[]", File: "t.py", Function: "test_x", HasParams: true},
		},
		{
			name: "bare file",
			raw:  "tests/test_api.py",
			want: nodeid.NodeID{Raw: "tests/test_api.py", File: "tests/test_api.py"},
		},
		{
			name: "bare directory",
			raw:  "tests",
			want: nodeid.NodeID{Raw: "tests", File: "tests"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := nodeid.Parse(tt.raw)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}

			assert.Equal(t, tt.raw, got.Format())
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"::test_ok",
		"test_basic.py::",
		"test_basic.py::::test_ok",
		"test_basic::test_ok",
		"test_basic.py[1]",
		"test_basic.py::test_ok[1]::extra",
	} {
		raw := raw
		t.Run(raw, func(t *testing.T) {
			t.Parallel()

			_, err := nodeid.Parse(raw)
			require.ErrorIs(t, err, nodeid.ErrMalformed)

			if raw != "" {
				assert.Contains(t, err.Error(), raw)
			}
		})
	}
}

func TestNodeID_Derived(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		name   string
		module string
		suite  string
		isFile bool
	}{
		{raw: "test_basic.py::test_ok", name: "test_ok", module: "test_basic"},
		{raw: "test_basic.py::test_ok[2]", name: "test_ok[2]", module: "test_basic"},
		{raw: "pkg/test_a.py::A::B::test_c", name: "test_c", module: "test_a", suite: "A::B"},
		{raw: `pkg\test_win.py::test_c`, name: "test_c", module: "test_win"},
		{raw: "pkg/test_a.py", name: "test_a.py", module: "test_a", isFile: true},
		{raw: "pkg/sub", name: "sub", isFile: true},
	}

	for _, tt := range tests {
		id := nodeid.MustParse(tt.raw)

		assert.Equal(t, tt.name, id.Name(), tt.raw)
		assert.Equal(t, tt.module, id.Module(), tt.raw)
		assert.Equal(t, tt.suite, id.Suite(), tt.raw)
		assert.Equal(t, tt.isFile, id.IsFile(), tt.raw)
		assert.Equal(t, tt.raw, id.String())
	}
}

func TestMustParse_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { nodeid.MustParse("::") })
}
