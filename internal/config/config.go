package config

import (
	"fmt"
	"os"
	"strings"
)

// Default configuration values (production)
const (
	DefaultDomain      = "meet.e-learnig.app"
	DefaultDisplayName = "Guest"
)

// DefaultSTUNServers mirrors the ICE configuration the web client ships with.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
}

// Config holds client configuration for joining a meeting.
type Config struct {
	// Domain is the signaling server domain
	Domain string

	// WebSocketURL is constructed from domain
	WebSocketURL string

	// STUN endpoints handed to every peer connection
	STUNServers []string

	// AuthToken is the bearer token presented on the signaling handshake
	AuthToken string

	// DisplayName shown to other participants
	DisplayName string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain      string
	STUNServers string // comma separated
	AuthToken   string
	DisplayName string
	Insecure    bool // use ws:// instead of wss:// (local development)
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := opts.Domain
	if domain == "" {
		domain = os.Getenv("MEET_DOMAIN")
	}
	if domain == "" {
		domain = DefaultDomain
	}

	stun := opts.STUNServers
	if stun == "" {
		stun = os.Getenv("STUN_SERVERS")
	}
	servers := DefaultSTUNServers
	if stun != "" {
		servers = nil
		for _, s := range strings.Split(stun, ",") {
			if s = strings.TrimSpace(s); s != "" {
				servers = append(servers, s)
			}
		}
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no STUN servers configured")
	}

	token := opts.AuthToken
	if token == "" {
		token = os.Getenv("MEET_TOKEN")
	}

	name := opts.DisplayName
	if name == "" {
		name = os.Getenv("MEET_NAME")
	}
	if name == "" {
		name = DefaultDisplayName
	}

	scheme := "wss"
	if opts.Insecure {
		scheme = "ws"
	}
	wsURL := fmt.Sprintf("%s://%s/ws", scheme, domain)

	return &Config{
		Domain:       domain,
		WebSocketURL: wsURL,
		STUNServers:  servers,
		AuthToken:    token,
		DisplayName:  name,
	}, nil
}
