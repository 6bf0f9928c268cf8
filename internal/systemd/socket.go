package systemd

import (
	"fmt"
	"net"
	"os"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Listeners holds the systemd-activated listeners. Fields are nil when the
// matching socket was not passed.
type Listeners struct {
	HTTP      net.Listener
	Metrics   net.Listener
	Activated bool
}

// GetListeners retrieves systemd socket-activated file descriptors.
// Returns empty listeners if not running under socket activation.
func GetListeners() (*Listeners, error) {
	listeners := &Listeners{}

	fds := activation.Files(false) // false = don't unset env vars
	if len(fds) == 0 {
		return listeners, nil
	}
	listeners.Activated = true

	// Names come from FileDescriptorName= in listenstats.socket (systemd 227+)
	named, err := activation.ListenersWithNames()
	if err != nil {
		return nil, fmt.Errorf("failed to get systemd listeners: %w", err)
	}

	if lns, ok := named["http"]; ok && len(lns) > 0 {
		listeners.HTTP = lns[0]
	}
	if lns, ok := named["metrics"]; ok && len(lns) > 0 {
		listeners.Metrics = lns[0]
	}

	return listeners, nil
}

func notify(state, what string) error {
	if _, err := daemon.SdNotify(false, state); err != nil {
		return fmt.Errorf("failed to send sd_notify %s: %w", what, err)
	}
	return nil
}

// NotifyReady tells systemd that the service has finished starting up.
func NotifyReady() error {
	return notify(daemon.SdNotifyReady, "ready")
}

// NotifyReloading tells systemd that the dataset is being reloaded.
// NotifyReady must follow once the reload finishes.
func NotifyReloading() error {
	return notify(daemon.SdNotifyReloading, "reloading")
}

// NotifyStopping tells systemd that the service is shutting down.
func NotifyStopping() error {
	return notify(daemon.SdNotifyStopping, "stopping")
}

// IsSystemdService returns true if a notify socket was passed to us.
func IsSystemdService() bool {
	return os.Getenv("NOTIFY_SOCKET") != ""
}
