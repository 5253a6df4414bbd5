package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pilebones/go-udev/netlink"

	"audiosub/internal/logging"
)

// UdevWatcher reports sound devices removed, using udev netlink events.
type UdevWatcher struct {
	logger *slog.Logger
}

// NewUdevWatcher returns a watcher for sound subsystem removals.
func NewUdevWatcher(logger *slog.Logger) *UdevWatcher {
	return &UdevWatcher{logger: logging.NewComponentLogger(logger, "hotplug")}
}

// Watch connects to the udev netlink socket. The returned channel receives the
// name of each removed capture device and is closed when ctx is done.
func (w *UdevWatcher) Watch(ctx context.Context) (<-chan string, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, fmt.Errorf("connect netlink: %w", err)
	}

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, removalMatcher())
	removals := make(chan string, 1)

	go func() {
		defer close(removals)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				close(quit)
				return
			case uevent := <-queue:
				name, ok := captureDeviceName(uevent)
				if !ok {
					continue
				}
				w.logger.Debug("sound device removed",
					logging.String("device", name),
					logging.String("kobj", uevent.KObj),
				)
				select {
				case removals <- name:
				case <-ctx.Done():
					close(quit)
					return
				}
			case err := <-errs:
				w.logger.Warn("netlink monitor error",
					logging.Error(err),
					logging.String(logging.FieldEventType, "netlink_monitor_error"),
					logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
					logging.String(logging.FieldImpact, "device removal may go unnoticed"),
				)
			}
		}
	}()
	return removals, nil
}

// removalMatcher matches: SUBSYSTEM=sound, ACTION=remove
func removalMatcher() netlink.Matcher {
	action := "remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "sound",
		},
	})
	return rules
}

// captureDeviceName keeps PCM capture nodes (pcmC*D*c) and whole cards, which
// disappear together when a USB microphone is unplugged.
func captureDeviceName(uevent netlink.UEvent) (string, bool) {
	name := uevent.Env["DEVNAME"]
	if name == "" {
		devpath := uevent.Env["DEVPATH"]
		if devpath == "" {
			return "", false
		}
		parts := strings.Split(devpath, "/")
		name = parts[len(parts)-1]
	}
	base := name[strings.LastIndex(name, "/")+1:]
	switch {
	case strings.HasPrefix(base, "pcmC") && strings.HasSuffix(base, "c"):
		return name, true
	case strings.HasPrefix(base, "card"):
		return name, true
	default:
		return "", false
	}
}
