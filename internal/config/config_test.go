package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.Equal(t, time.Hour, cfg.DBConnMaxLifetime)
	assert.Equal(t, 30*time.Second, cfg.SettingsCacheTTL)
	assert.Equal(t, 48*time.Hour, cfg.LoginSecurityRetention)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.AllowedEmailDomains)
	assert.False(t, cfg.DirectoryEnabled())
	assert.Equal(t, "technicians", cfg.ElasticsearchIndex)
}

func TestFromViper_Env(t *testing.T) {
	t.Setenv("ALLOWED_EMAIL_DOMAINS", " gmail.com, teknigo.pe ,,")
	t.Setenv("ELASTICSEARCH_URL", "http://es:9200")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, []string{"gmail.com", "teknigo.pe"}, cfg.AllowedEmailDomains)
	assert.True(t, cfg.DirectoryEnabled())
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{DBHost: "h", DBPort: "1", DBUser: "u", DBPassword: "p", DBName: "d", DBSSLMode: "disable", DBTimezone: "UTC"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable TimeZone=UTC", cfg.DSN())
}
