package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"tagprint/internal/config"
)

// USBPrinter describes a fake printer written into a test sysfs tree.
type USBPrinter struct {
	// Port is the sysfs device name, e.g. "1-1".
	Port string
	// Minor selects the lpN node.
	Minor        int
	VendorID     string
	ProductID    string
	Class        int
	Manufacturer string
	Product      string
	// NoNode skips creating the /dev/usb/lpN file.
	NoNode bool
}

// ZebraPrinter returns a typical ZD420 attached on port 1-1 as lp0.
func ZebraPrinter() USBPrinter {
	return USBPrinter{
		Port:         "1-1",
		VendorID:     "0a5f",
		ProductID:    "0120",
		Class:        7,
		Manufacturer: "Zebra Technologies",
		Product:      "ZTC ZD420-203dpi ZPL",
	}
}

// WriteUSBPrinter lays out the sysfs entries the usblp driver exposes for p
// under cfg.Printer.SysfsRoot and creates its device node as a plain file.
// The node path is returned.
func WriteUSBPrinter(t testing.TB, cfg *config.Config, p USBPrinter) string {
	t.Helper()

	root := cfg.Printer.SysfsRoot
	deviceDir := filepath.Join(root, p.Port)
	iface := filepath.Join(root, p.Port+":1.0")
	lp := fmt.Sprintf("lp%d", p.Minor)
	product := fmt.Sprintf("%s/%s/100", trimZeros(p.VendorID), trimZeros(p.ProductID))

	writeFile(t, filepath.Join(deviceDir, "idVendor"), p.VendorID+"\n")
	writeFile(t, filepath.Join(deviceDir, "idProduct"), p.ProductID+"\n")
	writeFile(t, filepath.Join(deviceDir, "manufacturer"), p.Manufacturer+"\n")
	writeFile(t, filepath.Join(deviceDir, "product"), p.Product+"\n")
	writeFile(t, filepath.Join(deviceDir, "serial"), "TEST"+p.Port+"\n")
	writeFile(t, filepath.Join(deviceDir, "uevent"),
		"DEVTYPE=usb_device\nDRIVER=usb\nPRODUCT="+product+"\nTYPE=0/0/0\n")

	writeFile(t, filepath.Join(iface, "bInterfaceClass"), fmt.Sprintf("%02x\n", p.Class))
	writeFile(t, filepath.Join(iface, "uevent"), fmt.Sprintf(
		"DEVTYPE=usb_interface\nDRIVER=usblp\nPRODUCT=%s\nTYPE=0/0/0\nINTERFACE=%d/1/2\n", product, p.Class))
	if err := os.MkdirAll(filepath.Join(iface, "usbmisc", lp), 0o755); err != nil {
		t.Fatalf("mkdir usbmisc: %v", err)
	}

	node := filepath.Join(cfg.Printer.DeviceDir, lp)
	if !p.NoNode {
		writeFile(t, node, "")
	}
	return node
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func trimZeros(id string) string {
	for len(id) > 1 && id[0] == '0' {
		id = id[1:]
	}
	return id
}

// WriteCatalog writes content to cfg.Paths.CatalogPath.
func WriteCatalog(t testing.TB, cfg *config.Config, content string) {
	t.Helper()
	writeFile(t, cfg.Paths.CatalogPath, content)
}
