package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rnaflow/internal/app"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     *app.Config
		exit     bool
		wantCode int
	}{
		{
			name: "positional run file",
			args: []string{"run.hcl"},
			want: &app.Config{Command: "run", ConfigPath: "run.hcl", LogFormat: "text", LogLevel: "info", Addr: ":8082"},
		},
		{
			name: "explicit run with overrides",
			args: []string{"run", "-c", "run.hcl", "-jobs", "4", "-stages", "create_db,map_reads", "-scheduler-url", "http://central:8082"},
			want: &app.Config{
				Command: "run", ConfigPath: "run.hcl", LogFormat: "text", LogLevel: "info", Addr: ":8082",
				Jobs: 4, Stages: "create_db,map_reads", SchedulerURL: "http://central:8082",
			},
		},
		{
			name: "check",
			args: []string{"check", "-config", "run.hcl", "-log-format", "JSON"},
			want: &app.Config{Command: "check", ConfigPath: "run.hcl", LogFormat: "json", LogLevel: "info", Addr: ":8082"},
		},
		{
			name: "scheduler without run file",
			args: []string{"scheduler", "-addr", ":9000"},
			want: &app.Config{Command: "scheduler", LogFormat: "text", LogLevel: "info", Addr: ":9000"},
		},
		{name: "help", args: []string{"-h"}, exit: true},
		{name: "no run file", args: nil, exit: true},
		{name: "bad flag", args: []string{"-nope"}, wantCode: ExitUsage},
		{name: "bad log level", args: []string{"-log-level", "loud", "run.hcl"}, wantCode: ExitUsage},
		{name: "bad port", args: []string{"-healthcheck-port", "-1", "run.hcl"}, wantCode: ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, exit, err := Parse(tt.args, &out)
			if tt.wantCode != 0 {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tt.wantCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exit, exit)
			if tt.exit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
