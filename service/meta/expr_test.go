package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvExpr(t *testing.T) {
	t.Setenv("GRIDRUN_DATA", "/cluster/data")
	t.Setenv("GRIDRUN_USER_1", "alice")

	testCases := []struct {
		description string
		input       string
		expect      string
	}{
		{
			description: "no expression",
			input:       "data_dir: /data/Task01_pancreas",
			expect:      "data_dir: /data/Task01_pancreas",
		},
		{
			description: "single expansion",
			input:       "data_dir: ${env.GRIDRUN_DATA}/Task01_pancreas",
			expect:      "data_dir: /cluster/data/Task01_pancreas",
		},
		{
			description: "key with digits and underscore",
			input:       "owner: ${env.GRIDRUN_USER_1}",
			expect:      "owner: alice",
		},
		{
			description: "unset variable expands to empty",
			input:       "tag: ${env.GRIDRUN_MISSING_FOR_SURE}!",
			expect:      "tag: !",
		},
		{
			description: "multiple expressions",
			input:       "${env.GRIDRUN_DATA}:${env.GRIDRUN_USER_1}",
			expect:      "/cluster/data:alice",
		},
		{
			description: "unterminated expression stays literal",
			input:       "dir: ${env.GRIDRUN_DATA",
			expect:      "dir: ${env.GRIDRUN_DATA",
		},
		{
			description: "invalid key stays literal",
			input:       "dir: ${env.GRIDRUN-DATA}",
			expect:      "dir: ${env.GRIDRUN-DATA}",
		},
		{
			description: "nested expression inside invalid one",
			input:       "${env.${env.GRIDRUN_USER_1}}",
			expect:      "${env.alice}",
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expect, expandEnvExpr(tc.input), tc.description)
	}
}
