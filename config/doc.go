// Package config loads blogstore settings from .env files and BLOGSTORE_*
// environment variables, and parses storage connection strings.
package config
