package discovery

import (
	"fmt"
	"time"
)

// Instance is a preview server found on the local network
type Instance struct {
	// Name is the mDNS service instance name (e.g., "tiscam on lab-pc")
	Name string

	// Hostname is the mDNS hostname (e.g., "lab-pc.local.")
	Hostname string

	// IP is the preferred address, IPv4 when one is advertised
	IP string

	// Port is the HTTP port of the preview server
	Port int

	// Model is the camera model from the "model" TXT record
	Model string

	// Version is the tiscam version from the "version" TXT record
	Version string

	// Metadata contains every TXT record
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable representation of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", i.Name, i.Model, i.IP, i.Port)
}

// BaseURL returns the HTTP base URL of the preview server
func (i *Instance) BaseURL() string {
	return fmt.Sprintf("http://%s", hostPort(i.IP, i.Port))
}

// StreamURL returns the WebSocket frame stream URL
func (i *Instance) StreamURL() string {
	return fmt.Sprintf("ws://%s/ws", hostPort(i.IP, i.Port))
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}
