package config

import (
	"testing"
	"time"

	"github.com/Dosada05/cue-club/brackets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"JWT_SECRET_KEY":      "secret",
		"STAFF_PASSWORD_HASH": "$2a$10$hash",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := fromEnv(envOf(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.R2.Enabled())
	assert.Nil(t, cfg.CORSOrigins)
	assert.Equal(t, brackets.DefaultRevealConfig(), cfg.Reveal)
	assert.Equal(t, 10*time.Minute, cfg.BracketTTL)
	assert.Equal(t, 15*time.Second, cfg.ShutdownGrace)
}

func TestFromEnv_Overrides(t *testing.T) {
	env := baseEnv()
	env["SERVER_PORT"] = "9090"
	env["DATABASE_URL"] = "postgres://localhost/cue"
	env["REDIS_URL"] = "redis://localhost:6379/0"
	env["CORS_ALLOWED_ORIGINS"] = " https://club.example , ,https://tv.example"
	env["REVEAL_ITERATIONS"] = "3"
	env["REVEAL_PAUSE_MS"] = "250"
	env["BRACKET_CACHE_TTL_SECONDS"] = "30"

	cfg, err := fromEnv(envOf(env))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "postgres://localhost/cue", cfg.DatabaseURL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"https://club.example", "https://tv.example"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.Reveal.Iterations)
	assert.Equal(t, 250*time.Millisecond, cfg.Reveal.Pause)
	assert.Equal(t, 30*time.Second, cfg.BracketTTL)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		drop string
	}{
		{name: "no jwt secret", drop: "JWT_SECRET_KEY"},
		{name: "no password hash", drop: "STAFF_PASSWORD_HASH"},
		{name: "port not a number", set: map[string]string{"SERVER_PORT": "eighty"}},
		{name: "port out of range", set: map[string]string{"SERVER_PORT": "70000"}},
		{name: "negative iterations", set: map[string]string{"REVEAL_ITERATIONS": "-1"}},
		{name: "bad pause", set: map[string]string{"REVEAL_PAUSE_MS": "soon"}},
		{name: "zero ttl", set: map[string]string{"BRACKET_CACHE_TTL_SECONDS": "0"}},
		{name: "partial r2", set: map[string]string{"R2_BUCKET_NAME": "brackets"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			delete(env, tt.drop)
			for k, v := range tt.set {
				env[k] = v
			}
			_, err := fromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
