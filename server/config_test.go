package pingserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndValidate(t *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(*Config)
		expectedError string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:          "port zero",
			mutate:        func(c *Config) { c.Server.Port = 0 },
			expectedError: "invalid port: 0",
		},
		{
			name:          "port out of range",
			mutate:        func(c *Config) { c.Server.Port = 70000 },
			expectedError: "invalid port: 70000",
		},
		{
			name:          "empty db path",
			mutate:        func(c *Config) { c.Server.DBPath = "" },
			expectedError: "database path must not be empty",
		},
		{
			name:          "probability above one",
			mutate:        func(c *Config) { c.Instructions.SendProbability = 1.5 },
			expectedError: "invalid instructions.send_probability: 1.5",
		},
		{
			name:          "negative probability",
			mutate:        func(c *Config) { c.Instructions.SendProbability = -0.1 },
			expectedError: "invalid instructions.send_probability: -0.1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{
					Port:   DefaultPort,
					DBPath: DefaultDBPath,
				},
			}
			tc.mutate(cfg)

			err := cfg.ParseAndValidate()
			if tc.expectedError == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tc.expectedError, err.Error())
			}
		})
	}
}

func TestListenAddress(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8081}}
	assert.Equal(t, ":8081", cfg.ListenAddress())
}
