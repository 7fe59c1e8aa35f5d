package usblp

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lpGetStatus is LPGETSTATUS from <linux/lp.h>; usblp answers it with the
// printer's IEEE 1284 status byte.
const lpGetStatus = 0x060b

const (
	statusNoError  = 0x08
	statusSelected = 0x10
	statusPaperOut = 0x20
)

// Status is the IEEE 1284 port status reported by the printer.
type Status int

// Err maps the status byte the way the usblp driver does.
func (s Status) Err() error {
	switch {
	case s&statusPaperOut != 0:
		return ErrPaperOut
	case s&statusSelected == 0:
		return ErrOffline
	case s&statusNoError == 0:
		return ErrPrinterFault
	}
	return nil
}

var (
	ErrPaperOut     = errors.New("printer out of media")
	ErrOffline      = errors.New("printer off-line")
	ErrPrinterFault = errors.New("printer reports an error")
)

// StatusReader reads the port status from an open device node. ok is false
// when the node does not answer status queries.
type StatusReader func(f *os.File) (status Status, ok bool, err error)

func ioctlStatus(f *os.File) (Status, bool, error) {
	value, err := unix.IoctlGetInt(int(f.Fd()), lpGetStatus)
	if err != nil {
		if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("LPGETSTATUS: %w", err)
	}
	return Status(value), true, nil
}
