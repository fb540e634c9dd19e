// Package cliconfig parses subsearch's command-line flags, adapted from
// the teacher's go-flags Config struct (pkg/interface/cli/config.go) to
// DNS brute-force settings instead of crawl settings.
package cliconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config holds all application configuration.
type Config struct {
	Hostname      string `short:"d" long:"domain" description:"Target hostname to enumerate subdomains of" required:"true"`
	WordlistFile  string `short:"w" long:"wordlist" description:"Subdomain wordlist, one label per line" required:"true"`
	ResolverFile  string `short:"r" long:"resolvers" description:"Resolver list, one host:port per line" required:"true"`

	Threads int `short:"t" long:"threads" description:"Number of concurrent scanner workers" default:"32"`

	OutputFile string `short:"o" long:"output" description:"CSV output file for discovered records" default:"result.csv"`

	ScanTimeout int `long:"timeout" description:"Initial per-scan timeout in seconds" default:"5"`

	ShowDashboard bool `long:"dashboard" description:"Show the interactive TUI dashboard instead of plain stdout progress"`

	MetricsAddr string `long:"metrics-addr" description:"Address to serve Prometheus metrics on, empty disables it" default:""`

	RunPrelude bool `long:"prelude" description:"Attempt NS discovery and zone transfer before brute forcing"`

	// ScanTimeoutDuration is derived from ScanTimeout after parsing.
	ScanTimeoutDuration time.Duration
}

// Parse parses os.Args into a validated Config.
func Parse() (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.Default)
	parser.Usage = "[OPTIONS]"

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		return nil, err
	}

	cfg.ScanTimeoutDuration = time.Duration(cfg.ScanTimeout) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parsed configuration for sense.
func (c *Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", c.Threads)
	}
	if c.ScanTimeoutDuration <= 0 {
		return fmt.Errorf("timeout must be > 0, got %s", c.ScanTimeoutDuration)
	}
	if c.Hostname == "" {
		return fmt.Errorf("domain is required")
	}
	return nil
}
