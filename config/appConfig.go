package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultCatalogs is the Perekrestok category slug list the importer walks
// when the config does not override it.
var DefaultCatalogs = []string{
	"moloko-syr-yaytsa",
	"ovoschi-frukty-griby",
	"myaso-ptitsa-delikatesy",
	"zamorojennye-produkty",
	"makarony-krupy-spetsii",
	"zdorovyy-vybor",
	"hleb-sladosti-sneki",
	"ryba-i-moreprodukty",
	"kofe-chay-sahar",
	"soki-vody-napitki",
	"konservy-orehi-sousy",
	"alkogol",
	"tovary-dlya-jivotnyh",
	"krasota-gigiena-bytovaya-himiya",
	"tovary-dlya-mam-i-detey",
	"avto-dom-sad-kuhnya",
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

func (sc SQLiteConfig) GetConnectionString() string {
	return sc.Path
}

type StorageConfig struct {
	// Driver selects the store implementation: "postgres" or "sqlite".
	Driver   string         `yaml:"driver"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

type PerekrestokConfig struct {
	SiteURL  string `yaml:"site_url"`
	APIURL   string `yaml:"api_url"`
	RegionID int    `yaml:"region_id"`
	// Token is the access token used for product fetches. Left empty, the
	// client works unauthenticated the way the mobile catalog tolerates.
	Token    string   `yaml:"token"`
	Catalogs []string `yaml:"catalogs"`

	MaxInFlight       int64   `yaml:"max_in_flight"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// ReacquireOnAuthFailure re-acquires the token once and retries when a
	// product fetch is rejected as unauthorized mid-run.
	ReacquireOnAuthFailure *bool `yaml:"reacquire_on_auth_failure"`
}

func (pc PerekrestokConfig) Reacquire() bool {
	if pc.ReacquireOnAuthFailure == nil {
		return true
	}
	return *pc.ReacquireOnAuthFailure
}

type AppConfig struct {
	Storage     StorageConfig     `yaml:"storage"`
	Perekrestok PerekrestokConfig `yaml:"perekrestok"`
	// MetricsAddr, when set, exposes Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	config.applyDefaults()
	return config, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "food.db"
	}
	c.Storage.Postgres = c.Storage.Postgres.withEnvDefaults()

	if c.Perekrestok.SiteURL == "" {
		c.Perekrestok.SiteURL = "https://www.perekrestok.ru"
	}
	if c.Perekrestok.APIURL == "" {
		c.Perekrestok.APIURL = "https://api.perekrestok.ru"
	}
	if c.Perekrestok.RegionID == 0 {
		c.Perekrestok.RegionID = 1
	}
	if len(c.Perekrestok.Catalogs) == 0 {
		c.Perekrestok.Catalogs = DefaultCatalogs
	}
}
