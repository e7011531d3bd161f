package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoaderConfig(files ...string) aconfig.Config {
	return aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "FRESHO",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)

	assert.Equal(t, "RLC_40", cfg.Catalog.StoreLocationID)
	assert.Equal(t, 20, cfg.Catalog.PageSize)
	assert.Equal(t, 3*time.Second, cfg.Scanner.Cooldown)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, "test@gmail.com", cfg.Session.DemoEmail)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Fallback.Random)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("FRESHO_CATALOG_BASE_URL", "https://shop.example.com/api")
	t.Setenv("FRESHO_CATALOG_PAGE_SIZE", "50")

	cfg, err := loadConfig(testLoaderConfig())
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.Catalog.BaseURL)
	assert.Equal(t, 50, cfg.Catalog.PageSize)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scanner:\n  cooldown: 5s\nfallback:\n  random: true\n"), 0o600))

	cfg, err := loadConfig(testLoaderConfig(path))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Scanner.Cooldown)
	assert.True(t, cfg.Fallback.Random)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "bad url", mutate: func(c *Config) { c.Catalog.BaseURL = "not a url" }},
		{name: "zero page size", mutate: func(c *Config) { c.Catalog.PageSize = 0 }},
		{name: "short secret", mutate: func(c *Config) { c.Session.Secret = "short" }},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Store = "etcd" }},
		{name: "bad demo email", mutate: func(c *Config) { c.Session.DemoEmail = "nobody" }},
		{name: "redis without addr", mutate: func(c *Config) {
			c.Session.Store = "redis"
			c.Session.Redis.Addr = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(testLoaderConfig())
			require.NoError(t, err)

			tt.mutate(cfg)

			assert.Error(t, cfg.Validate())
		})
	}
}
