// Package usblp writes label payloads straight to a locally attached USB
// printer through the Linux usblp driver.
//
// Discovery walks the sysfs USB device list and evaluates each interface's
// uevent against go-udev matcher rules: printer class interfaces
// (bInterfaceClass 7) and Zebra vendor IDs qualify. The kernel driver has
// already selected the configuration and claimed the printer interface, so a
// write is just an exclusive claim, a status check and a write to
// /dev/usb/lpN. The same rules drive the hotplug monitor in the daemon.
package usblp
