package config

import (
	"catalog_scraper/domain/entities"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCredentialsValidate(t *testing.T) {
	err := Credentials{}.Validate()
	require.ErrorIs(t, err, entities.ErrConfiguration)
	require.Contains(t, err.Error(), EnvUsername)
	require.Contains(t, err.Error(), EnvPassword)

	err = Credentials{Username: "a@b.c"}.Validate()
	require.ErrorIs(t, err, entities.ErrConfiguration)
	require.NotContains(t, err.Error(), EnvUsername+" and")

	require.NoError(t, Credentials{Username: "a@b.c", Password: "pw"}.Validate())
}

func TestLandmarkSelector(t *testing.T) {
	l := Landmark{Tag: "h3", Text: "Full Catalog"}
	require.Equal(t, "//h3[contains(text(),'Full Catalog')]", l.Selector())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvUsername, "user@example.com")
	t.Setenv(EnvPassword, "secret")

	cfg, err := Load(quietLogger(), filepath.Join(t.TempDir(), "missing.json5"), filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "hiring.idenhq.com", cfg.Target.Hostname)
	require.Equal(t, "user@example.com", cfg.Credentials.Username)
	require.Len(t, cfg.Target.Landmarks, 5)
	require.Equal(t, 5*time.Second, cfg.Timeouts.Growth.Duration())
	require.Equal(t, "product_data.json", cfg.Paths.Output)
}

func TestLoadMergesLocalOverride(t *testing.T) {
	t.Setenv(EnvUsername, "user@example.com")
	t.Setenv(EnvPassword, "secret")

	dir := t.TempDir()
	base := `{
		// staging instance
		target: {
			entry_url: "https://staging.example.com/login",
			landmarks: [{tag: "a", text: "Catalog"}],
		},
		timeouts: {growth: 8000},
	}`
	local := `{paths: {output: "out/local.json"}, timeouts: {login: 2500}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json5"), []byte(base), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.local.json5"), []byte(local), 0644))

	cfg, err := Load(quietLogger(), filepath.Join(dir, "catalog.json5"), filepath.Join(dir, ".env"))
	require.NoError(t, err)

	require.Equal(t, "staging.example.com", cfg.Target.Hostname)
	require.Equal(t, []Landmark{{Tag: "a", Text: "Catalog"}}, cfg.Target.Landmarks)
	require.Equal(t, Millis(8000), cfg.Timeouts.Growth)
	require.Equal(t, Millis(2500), cfg.Timeouts.Login)
	require.Equal(t, Millis(30000), cfg.Timeouts.Entry)
	require.Equal(t, "out/local.json", cfg.Paths.Output)
	require.Equal(t, "session.json", cfg.Paths.Session)
	require.Equal(t, "div.grid>div.rounded-lg", cfg.Target.ItemSelector)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json5")
	require.NoError(t, os.WriteFile(path, []byte("{target: "), 0644))

	_, err := Load(quietLogger(), path)
	require.ErrorIs(t, err, entities.ErrConfiguration)
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvPassword, "")
	os.Unsetenv(EnvUsername)
	os.Unsetenv(EnvPassword)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("USERNAME=dotenv@example.com\nPASSWORD=fromfile\n"), 0644))

	cfg, err := Load(quietLogger(), "", envFile)
	require.NoError(t, err)
	require.Equal(t, "dotenv@example.com", cfg.Credentials.Username)
	require.Equal(t, "fromfile", cfg.Credentials.Password)
}

func TestValidateLandmarks(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Credentials = Credentials{Username: "a@b.c", Password: "pw"}
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"no landmarks":      func(c *Config) { c.Target.Landmarks = nil },
		"empty text":        func(c *Config) { c.Target.Landmarks[2].Text = "" },
		"empty tag":         func(c *Config) { c.Target.Landmarks[0].Tag = "" },
		"quote in text":     func(c *Config) { c.Target.Landmarks[1].Text = "Today's Deals" },
		"empty view marker": func(c *Config) { c.Target.ViewMarker = Landmark{} },
		"quoted marker":     func(c *Config) { c.Target.ViewMarker.Text = "Editor's Picks" },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(&cfg)
		require.ErrorIs(t, cfg.Validate(), entities.ErrConfiguration, name)
	}
}

func TestLoadKeepsLowerLayerForZeroValues(t *testing.T) {
	t.Setenv(EnvUsername, "user@example.com")
	t.Setenv(EnvPassword, "secret")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json5"),
		[]byte(`{target: {max_growth_triggers: 0}, browser: {args: [], headless: false}}`), 0644))

	cfg, err := Load(quietLogger(), filepath.Join(dir, "catalog.json5"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	require.Equal(t, 500, cfg.Target.MaxGrowthTriggers)
	require.Equal(t, []string{"--start-maximized"}, cfg.Browser.Args)
	require.False(t, cfg.Browser.Headless)
}

func TestValidateWithoutCredentials(t *testing.T) {
	cfg := Default()
	require.ErrorIs(t, cfg.Validate(), entities.ErrConfiguration)
}
