package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables overlaid onto Source.
const (
	EnvDomain      = "SHOPIFY_DOMAIN"
	EnvAPIVersion  = "SHOPIFY_API_VERSION"
	EnvAccessToken = "SHOPIFY_ACCESS_TOKEN"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables already set. Missing files are
// ignored; with no arguments ".env" is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// OverlayEnv fills empty Source credentials from the environment using
// lookup (os.LookupEnv when nil). Values in the job file win.
func (e *Export) OverlayEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	set(&e.Source.Domain, EnvDomain)
	set(&e.Source.APIVersion, EnvAPIVersion)
	set(&e.Source.AccessToken, EnvAccessToken)
}
