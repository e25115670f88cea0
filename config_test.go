/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validTestConfig() *Config {
	return &Config{
		bind:          "0.0.0.0",
		countdown:     3 * time.Second,
		defaultRounds: 6,
		port:          8080,
		revealTime:    30 * time.Second,
		roundTime:     30 * time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validTestConfig().validate())

	cfg := validTestConfig()
	cfg.port = 0
	assert.Error(t, cfg.validate())

	cfg = validTestConfig()
	cfg.tlsCert = "cert.pem"
	assert.Error(t, cfg.validate(), "tls cert without key must be rejected")

	cfg = validTestConfig()
	cfg.roundTime = 0
	assert.Error(t, cfg.validate())

	cfg = validTestConfig()
	cfg.revealTime = -time.Second
	assert.Error(t, cfg.validate())

	cfg = validTestConfig()
	cfg.defaultRounds = 0
	assert.Error(t, cfg.validate())
}

func TestConfigScheme(t *testing.T) {
	t.Parallel()

	cfg := validTestConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert = "cert.pem"
	cfg.tlsKey = "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}
