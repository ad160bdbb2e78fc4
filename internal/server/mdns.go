package server

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/tiscam/internal/discovery"
	"github.com/muurk/tiscam/internal/logging"
	"github.com/muurk/tiscam/internal/version"
)

// advertise registers the server as discovery.ServiceType on port
func (s *Server) advertise(port int) error {
	txt := discovery.TXTRecords(s.config.Model, version.Version)
	mdns, err := zeroconf.Register(s.config.Instance, discovery.ServiceType, discovery.ServiceDomain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", discovery.ServiceType, err)
	}
	s.mdns = mdns

	logging.Info("Advertising preview server over mDNS",
		zap.String("instance", s.config.Instance),
		zap.String("service", discovery.ServiceType),
		zap.Int("port", port),
		zap.Strings("txt", txt),
	)
	return nil
}
