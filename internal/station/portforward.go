package station

import (
	"context"
	"fmt"
	"time"

	"github.com/AndreasAanestad/websync-station/internal/utils"
)

const (
	portMappingLifetime = 10 * time.Minute
	portRefreshInterval = 5 * time.Minute
)

// StartPortForwarding begins the background TCP mapping refresh loop for
// the console port when auto port forwarding is enabled.
func (s *Station) StartPortForwarding() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.AutoPortForward || s.Port <= 0 {
		return
	}
	if s.pfStop != nil {
		return
	}
	s.pfStop = make(chan struct{})
	go s.managePortForwarding(s.pfStop)
}

// StopPortForwarding stops the refresh loop when one is running and
// removes the mapping.
func (s *Station) StopPortForwarding() {
	s.mu.Lock()
	stop := s.pfStop
	s.pfStop = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	s.deletePortMapping()
}

// managePortForwarding keeps the mapping alive by re-adding it well
// inside its lifetime. It exits when stop is closed.
func (s *Station) managePortForwarding(stop <-chan struct{}) {
	s.refreshPortMapping()
	ticker := time.NewTicker(portRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.refreshPortMapping()
		case <-stop:
			return
		}
	}
}

// refreshPortMapping attempts to (re)create the TCP mapping and updates
// the transient status fields shown in the console.
func (s *Station) refreshPortMapping() {
	ctx := context.Background()
	externalPort, err := utils.MapConsolePort(ctx, s.Port, portMappingLifetime)
	if err != nil {
		s.safeLog("Console port forward attempt failed: " + err.Error())
		s.mu.Lock()
		s.PortForwardActive = false
		s.PortForwardLastError = err.Error()
		s.mu.Unlock()
		return
	}

	var externalIP string
	if ip, ipErr := utils.GetExternalIP(ctx); ipErr == nil && ip != nil {
		externalIP = ip.String()
	}

	s.mu.Lock()
	s.PortForwardActive = true
	s.PortForwardExternalPort = externalPort
	s.PortForwardLastError = ""
	s.ExternalIP = externalIP
	s.mu.Unlock()
	s.safeLog(fmt.Sprintf("Console port forward active: internal TCP %d -> external TCP %d", s.Port, externalPort))
}

// deletePortMapping removes the TCP mapping; errors are logged and
// otherwise ignored.
func (s *Station) deletePortMapping() {
	if err := utils.UnmapConsolePort(context.Background(), s.Port); err != nil {
		s.safeLog("Console port forward removal failed: " + err.Error())
		return
	}
	s.safeLog("Console port forward mapping removed")
	s.mu.Lock()
	s.PortForwardActive = false
	s.mu.Unlock()
}

// PortForwardStatus reports the current console port mapping state.
func (s *Station) PortForwardStatus() (active bool, externalPort int, externalIP, lastError string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PortForwardActive, s.PortForwardExternalPort, s.ExternalIP, s.PortForwardLastError
}
