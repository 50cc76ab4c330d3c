//go:build linux

package device

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const sysV4L2Path = "/sys/class/video4linux"

// linuxProber resolves devices by scanning the V4L2 sysfs tree.
type linuxProber struct {
	sysPath string
}

func newPlatformProber() Prober {
	return &linuxProber{sysPath: sysV4L2Path}
}

// Resolve picks the first usable video node, honoring DeviceHint. The
// facing preference maps onto device name matching: built-in webcams
// commonly expose "integrated" or "user facing" in their card name.
func (p *linuxProber) Resolve(_ context.Context, constraints Constraints) (Resolved, error) {
	if constraints.DeviceHint != "" {
		if err := checkDeviceNode(constraints.DeviceHint); err != nil {
			return Resolved{}, err
		}
		return p.resolved(constraints.DeviceHint, constraints), nil
	}

	entries, err := os.ReadDir(p.sysPath)
	if err != nil {
		return Resolved{}, newError(ErrCodeNoBackend, "no video4linux subsystem", err)
	}

	var nodes []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "video") {
			nodes = append(nodes, entry.Name())
		}
	}
	if len(nodes) == 0 {
		return Resolved{}, newError(ErrCodeNoDevice, "no capture device found", nil)
	}
	sort.Strings(nodes)

	// Prefer a node whose card name suggests the requested facing.
	preferred := ""
	for _, node := range nodes {
		name := p.cardName(node)
		if constraints.Facing == FacingUser &&
			(strings.Contains(name, "integrated") || strings.Contains(name, "user facing")) {
			preferred = node
			break
		}
	}
	if preferred == "" {
		preferred = nodes[0]
	}

	devicePath := filepath.Join("/dev", preferred)
	if err := checkDeviceNode(devicePath); err != nil {
		return Resolved{}, err
	}

	return p.resolved(devicePath, constraints), nil
}

func (p *linuxProber) resolved(devicePath string, constraints Constraints) Resolved {
	audio := ""
	if constraints.Audio {
		audio = constraints.AudioDevice
		if audio == "" {
			audio = "default"
		}
	}
	return Resolved{
		VideoDevice: devicePath,
		AudioDevice: audio,
		Width:       constraints.IdealWidth,
		Height:      constraints.IdealHeight,
	}
}

// List enumerates the V4L2 video nodes visible in sysfs.
func List() []Info {
	return listDevices(sysV4L2Path)
}

func listDevices(sysPath string) []Info {
	entries, err := os.ReadDir(sysPath)
	if err != nil {
		return nil
	}

	var nodes []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "video") {
			nodes = append(nodes, entry.Name())
		}
	}
	sort.Strings(nodes)

	prober := &linuxProber{sysPath: sysPath}
	infos := make([]Info, 0, len(nodes))
	for _, node := range nodes {
		path := filepath.Join("/dev", node)
		infos = append(infos, Info{
			Path:       path,
			Name:       prober.cardName(node),
			Accessible: checkDeviceNode(path) == nil,
		})
	}
	return infos
}

// cardName reads the lowercase card name for a sysfs video node.
func (p *linuxProber) cardName(node string) string {
	data, err := os.ReadFile(filepath.Join(p.sysPath, node, "name"))
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(string(data)))
}

// checkDeviceNode verifies the node exists and is accessible.
func checkDeviceNode(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newError(ErrCodeNoDevice, "device not found: "+path, err)
		}
		if os.IsPermission(err) {
			return newError(ErrCodePermissionDenied, "Permission denied", err)
		}
		return newError(ErrCodeNoDevice, "device not accessible: "+path, err)
	}
	if fi.Mode()&os.ModeDevice == 0 {
		return newError(ErrCodeNoDevice, "not a device node: "+path, nil)
	}
	return nil
}
