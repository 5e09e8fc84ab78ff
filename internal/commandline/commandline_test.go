package commandline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScaleArg(t *testing.T) {
	tests := []struct {
		name      string
		arg       string
		wantSvc   string
		wantCount int
		wantErr   bool
	}{
		{name: "valid", arg: "web=3", wantSvc: "web", wantCount: 3},
		{name: "zero is valid syntactically", arg: "web=0", wantSvc: "web", wantCount: 0},
		{name: "missing equals", arg: "web", wantErr: true},
		{name: "non-numeric count", arg: "web=many", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, count, err := parseScaleArg(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantSvc, svc)
			require.Equal(t, tt.wantCount, count)
		})
	}
}

func TestDefaultProjectNameNormalizesDirectoryName(t *testing.T) {
	name := defaultProjectName("./My App/docker-compose.yml")
	require.NotEmpty(t, name)
	for _, r := range name {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		isSep := r == '_' || r == '-'
		require.True(t, isLower || isDigit || isSep, "unexpected rune %q in %q", r, name)
	}
}

func TestEnvironMapParsesProcessEnvironment(t *testing.T) {
	t.Setenv("STRATA_TEST_VAR", "value")
	env := environMap()
	require.Equal(t, "value", env["STRATA_TEST_VAR"])
}
