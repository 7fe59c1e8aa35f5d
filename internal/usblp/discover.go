package usblp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pilebones/go-udev/netlink"
)

// ErrNoDevice reports that no usable USB printer is attached.
var ErrNoDevice = errors.New("no usb printer attached")

// Zebra vendor IDs as they appear in uevent PRODUCT values (no leading zeros).
const (
	vendorZebra       = "a5f"
	vendorZebraLegacy = "5e0"
)

// Device is a USB printer interface bound to a usblp node.
type Device struct {
	// Node is the character device, e.g. /dev/usb/lp0.
	Node string `json:"node"`
	// Interface is the sysfs interface name, e.g. 1-1:1.0.
	Interface    string `json:"interface"`
	VendorID     string `json:"vendor_id,omitempty"`
	ProductID    string `json:"product_id,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty"`
	Serial       string `json:"serial,omitempty"`
}

// Name is a short human label for logs.
func (d Device) Name() string {
	label := strings.TrimSpace(d.Manufacturer + " " + d.Product)
	if label == "" {
		label = d.Interface
	}
	return fmt.Sprintf("%s (%s)", label, d.Node)
}

// PrinterMatcher matches USB printer interfaces by class or Zebra vendor.
// Rules are anchored regular expressions over uevent variables.
func PrinterMatcher() netlink.Matcher {
	action := "add|change|bind"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"DEVTYPE":   "^usb_interface$",
			"INTERFACE": "^7/",
		},
	})
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"DEVTYPE": "^usb_interface$",
			"PRODUCT": "^(" + vendorZebra + "|" + vendorZebraLegacy + ")/",
		},
	})
	return rules
}

// NodeMatcher matches usblp character device hotplug events.
func NodeMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "^usbmisc$",
			"DEVNAME":   "^usb/lp[0-9]+$",
		},
	})
	return rules
}

// Discover lists printer interfaces under sysfsRoot whose usblp node exists
// in deviceDir, ordered by interface name.
func Discover(sysfsRoot, deviceDir string) ([]Device, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sysfs %s: %w", sysfsRoot, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		// Interfaces are named <bus>-<port>:<config>.<interface>.
		if strings.Contains(entry.Name(), ":") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	matcher := PrinterMatcher()
	var devices []Device
	for _, name := range names {
		ifaceDir := filepath.Join(sysfsRoot, name)
		env, err := readUEvent(filepath.Join(ifaceDir, "uevent"))
		if err != nil {
			continue
		}
		event := netlink.UEvent{Action: netlink.ADD, KObj: ifaceDir, Env: env}
		if !matcher.Evaluate(event) {
			continue
		}
		node := nodeFor(ifaceDir, deviceDir)
		if node == "" {
			continue
		}
		devices = append(devices, describe(sysfsRoot, name, node, env))
	}
	return devices, nil
}

func nodeFor(ifaceDir, deviceDir string) string {
	matches, err := filepath.Glob(filepath.Join(ifaceDir, "usbmisc", "lp*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	node := filepath.Join(deviceDir, filepath.Base(matches[0]))
	if _, err := os.Stat(node); err != nil {
		return ""
	}
	return node
}

func describe(sysfsRoot, iface, node string, env map[string]string) Device {
	dev := Device{Node: node, Interface: iface}
	if parts := strings.Split(env["PRODUCT"], "/"); len(parts) >= 2 {
		dev.VendorID = padID(parts[0])
		dev.ProductID = padID(parts[1])
	}
	parent := filepath.Join(sysfsRoot, strings.SplitN(iface, ":", 2)[0])
	dev.Manufacturer = readAttr(parent, "manufacturer")
	dev.Product = readAttr(parent, "product")
	dev.Serial = readAttr(parent, "serial")
	if v := readAttr(parent, "idVendor"); v != "" {
		dev.VendorID = v
	}
	if p := readAttr(parent, "idProduct"); p != "" {
		dev.ProductID = p
	}
	return dev
}

func padID(id string) string {
	if len(id) >= 4 {
		return id
	}
	return strings.Repeat("0", 4-len(id)) + id
}

func readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// readUEvent parses KEY=VALUE lines of a sysfs uevent file.
func readUEvent(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseUEvent(data), nil
}

func parseUEvent(data []byte) map[string]string {
	env := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
