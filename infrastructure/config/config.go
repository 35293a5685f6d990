package config

import (
	"catalog_scraper/domain/entities"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/titanous/json5"
)

const (
	EnvUsername = "USERNAME"
	EnvPassword = "PASSWORD"
)

// Millis is a duration written as milliseconds in config files
type Millis int

// Duration converts m to a time.Duration
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// Credentials are the login identifier and secret. They only come from the environment.
type Credentials struct {
	Username string `json:"-"`
	Password string `json:"-"`
}

// Validate fails with ErrConfiguration when either value is missing
func (c Credentials) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, EnvUsername)
	}
	if c.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: username or password is missing, set %s in the environment or .env file",
			entities.ErrConfiguration, strings.Join(missing, " and "))
	}
	return nil
}

// Landmark is a clickable element located by its tag and visible text
type Landmark struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// Selector renders the landmark as a content based XPath locator
func (l Landmark) Selector() string {
	return fmt.Sprintf("//%s[contains(text(),'%s')]", l.Tag, l.Text)
}

// Validate rejects landmarks that can't be rendered as a selector. The text
// is quoted with ' in the XPath, so it must not contain one.
func (l Landmark) Validate() error {
	if l.Tag == "" || l.Text == "" {
		return fmt.Errorf("%w: landmark needs a tag and a text, got %q %q", entities.ErrConfiguration, l.Tag, l.Text)
	}
	if strings.Contains(l.Text, "'") {
		return fmt.Errorf("%w: landmark text %q contains a single quote", entities.ErrConfiguration, l.Text)
	}
	return nil
}

func (l Landmark) String() string {
	return l.Text
}

// Target describes the application being scraped
type Target struct {
	EntryURL string `json:"entry_url"`
	// Hostname gates session storage replay. Derived from EntryURL when empty.
	Hostname string `json:"hostname"`

	SignInMarker    string `json:"sign_in_marker"`
	SignedInMarker  string `json:"signed_in_marker"`
	IdentifierInput string `json:"identifier_input"`
	SecretInput     string `json:"secret_input"`
	SubmitButton    string `json:"submit_button"`

	Landmarks  []Landmark `json:"landmarks"`
	ViewMarker Landmark   `json:"view_marker"`

	SummarySelector  string `json:"summary_selector"`
	SummaryDelimiter string `json:"summary_delimiter"`
	ItemSelector     string `json:"item_selector"`

	TitleSelector    string   `json:"title_selector"`
	FragmentSelector string   `json:"fragment_selector"`
	FieldDelimiters  []string `json:"field_delimiters"` // ID, Shade, Details, Guarantee

	ScrollDelta       float64 `json:"scroll_delta"`
	MaxGrowthTriggers int     `json:"max_growth_triggers"`
}

// Timeouts bounds every wait of a run
type Timeouts struct {
	Default    Millis `json:"default"`
	Entry      Millis `json:"entry"`
	Login      Millis `json:"login"`
	Navigation Millis `json:"navigation"`
	ViewMarker Millis `json:"view_marker"`
	Growth     Millis `json:"growth"`
}

// Paths are the files a run reads and writes
type Paths struct {
	Session string `json:"session"`
	Output  string `json:"output"`
	Archive string `json:"archive"` // optional SQLite archive
}

// Browser configures the launched browser
type Browser struct {
	Headless bool     `json:"headless"`
	Args     []string `json:"args"`
}

// Config is validated once at startup and passed to the components that need it
type Config struct {
	Credentials Credentials `json:"-"`
	Target      Target      `json:"target"`
	Timeouts    Timeouts    `json:"timeouts"`
	Paths       Paths       `json:"paths"`
	Browser     Browser     `json:"browser"`
}

// Default returns the configuration for the product inventory challenge
func Default() Config {
	return Config{
		Target: Target{
			EntryURL:        "https://hiring.idenhq.com/",
			SignInMarker:    "h3:text('Sign in')",
			SignedInMarker:  "text='Sign out'",
			IdentifierInput: "input#email",
			SecretInput:     "input#password",
			SubmitButton:    "button[type='submit']",
			Landmarks: []Landmark{
				{Tag: "button", Text: "Launch Challenge"},
				{Tag: "button", Text: "Dashboard"},
				{Tag: "h3", Text: "Inventory"},
				{Tag: "h3", Text: "Products"},
				{Tag: "h3", Text: "Full Catalog"},
			},
			ViewMarker:        Landmark{Tag: "h3", Text: "Product Inventory"},
			SummarySelector:   "//div[contains(text(),'Showing ')]",
			SummaryDelimiter:  "of",
			ItemSelector:      "div.grid>div.rounded-lg",
			TitleSelector:     "div.h-12",
			FragmentSelector:  "div.p-3>div>div",
			FieldDelimiters:   []string{":", "Shade", "Details", "Guarantee"},
			ScrollDelta:       200,
			MaxGrowthTriggers: 500,
		},
		Timeouts: Timeouts{
			Default:    30000,
			Entry:      30000,
			Login:      10000,
			Navigation: 10000,
			ViewMarker: 15000,
			Growth:     5000,
		},
		Paths: Paths{
			Session: "session.json",
			Output:  "product_data.json",
		},
		Browser: Browser{
			Args: []string{"--start-maximized"},
		},
	}
}

// Load builds the configuration: defaults, then the optional config file and its
// .local override, then credentials from the environment. envFiles are loaded
// with godotenv first; a missing .env is not an error.
//
// Files are merged with mergo, which skips zero values. A file can't turn a
// setting back to its zero value: max_growth_triggers 0, an empty args list and
// headless false all leave the lower layer in place.
func Load(logger *logrus.Logger, path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := readConfig(logger, path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.WithField("path", path).Debug("no config file, using defaults")
		case err != nil:
			return cfg, fmt.Errorf("%w: read %s: %v", entities.ErrConfiguration, path, err)
		default:
			if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
				return cfg, fmt.Errorf("%w: merge %s: %v", entities.ErrConfiguration, path, err)
			}
		}
	}

	if err := godotenv.Load(envFiles...); err != nil {
		logger.Debug(".env file not found, using environment variables")
	}

	cfg.Credentials = Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
	}

	if cfg.Target.Hostname == "" {
		u, err := url.Parse(cfg.Target.EntryURL)
		if err != nil {
			return cfg, fmt.Errorf("%w: entry url %q: %v", entities.ErrConfiguration, cfg.Target.EntryURL, err)
		}
		cfg.Target.Hostname = u.Hostname()
	}

	return cfg, nil
}

// Validate checks the configuration once before anything is launched
func (c Config) Validate() error {
	if err := c.Credentials.Validate(); err != nil {
		return err
	}
	if c.Target.EntryURL == "" {
		return fmt.Errorf("%w: entry url is empty", entities.ErrConfiguration)
	}
	if c.Target.ItemSelector == "" || c.Target.SummarySelector == "" {
		return fmt.Errorf("%w: item and summary selectors are required", entities.ErrConfiguration)
	}
	if len(c.Target.Landmarks) == 0 {
		return fmt.Errorf("%w: no landmarks configured", entities.ErrConfiguration)
	}
	for i, l := range c.Target.Landmarks {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("landmark %d: %w", i+1, err)
		}
	}
	if err := c.Target.ViewMarker.Validate(); err != nil {
		return fmt.Errorf("view marker: %w", err)
	}
	if len(c.Target.FieldDelimiters) == 0 {
		return fmt.Errorf("%w: no field delimiters configured", entities.ErrConfiguration)
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("%w: output path is empty", entities.ErrConfiguration)
	}
	return nil
}

// readConfig reads <name>.<ext> and merges <name>.local.<ext> over it
func readConfig(logger *logrus.Logger, name string) (Config, error) {
	var out Config
	found := false

	data, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return out, err
		}
		found = true
	}

	ext := filepath.Ext(name)
	localPath := strings.TrimSuffix(name, ext) + ".local" + ext
	local, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(local) > 0 {
		var override Config
		if err := json5.Unmarshal(local, &override); err != nil {
			return out, err
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		logger.WithField("local", localPath).Info("merging config with local overrides")
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}
