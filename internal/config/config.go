package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/expensebot/core/config"
	"github.com/m3rciful/expensebot/internal/expense"
)

// ExpenseConfig holds the form settings.
type ExpenseConfig struct {
	// Timezone resolves "Today" and "Yesterday"; empty means the host zone.
	Timezone string `yaml:"timezone" envconfig:"EXPENSE_TIMEZONE"`
	// NotifyAdmin forwards every submitted record to telegram.admin_id.
	NotifyAdmin bool `yaml:"notify_admin" envconfig:"EXPENSE_NOTIFY_ADMIN"`
	// Categories overrides the built-in catalog when non-empty.
	Categories []expense.Category `yaml:"categories" ignored:"true"`

	location *time.Location
	catalog  *expense.Catalog
}

// Location returns the parsed timezone.
func (e *ExpenseConfig) Location() *time.Location { return e.location }

// Catalog returns the validated category catalog.
func (e *ExpenseConfig) Catalog() *expense.Catalog { return e.catalog }

// Config is the application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`
	Expense           ExpenseConfig `yaml:"expense"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates core settings, then resolves the timezone and catalog.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	tz := strings.TrimSpace(cfg.Expense.Timezone)
	if tz == "" {
		cfg.Expense.location = time.Local
	} else {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid expense.timezone %q: %w", tz, err)
		}
		cfg.Expense.location = loc
	}

	categories := cfg.Expense.Categories
	if len(categories) == 0 {
		categories = expense.DefaultCategories()
	}
	catalog, err := expense.NewCatalog(categories)
	if err != nil {
		return fmt.Errorf("invalid expense.categories: %w", err)
	}
	cfg.Expense.catalog = catalog

	if cfg.Expense.NotifyAdmin && cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("expense.notify_admin requires telegram.admin_id")
	}
	return nil
}
