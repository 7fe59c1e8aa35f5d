package usblp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"tagprint/internal/config"
	"tagprint/internal/logging"
)

const (
	claimRetryDelay   = 50 * time.Millisecond
	defaultWriteGrace = 2 * time.Second
)

// ErrWriteIndeterminate marks a device write that was still in flight when
// its deadline passed. The payload may yet reach the printer.
var ErrWriteIndeterminate = errors.New("device write outcome unknown")

// Link writes payloads to the first attached USB printer.
type Link struct {
	sysfsRoot  string
	deviceDir  string
	lockDir    string
	status     StatusReader
	writeGrace time.Duration
	logger     *slog.Logger
}

// Option customizes a Link.
type Option func(*Link)

// WithStatusReader replaces the LPGETSTATUS query.
func WithStatusReader(r StatusReader) Option {
	return func(l *Link) {
		if r != nil {
			l.status = r
		}
	}
}

// WithWriteGrace sets how long Write waits for a writer past its deadline.
func WithWriteGrace(d time.Duration) Option {
	return func(l *Link) {
		if d > 0 {
			l.writeGrace = d
		}
	}
}

// NewLink builds a device link from the [printer] config section. Claim
// lock files live in the data directory.
func NewLink(cfg *config.Config, logger *slog.Logger, opts ...Option) *Link {
	l := &Link{
		sysfsRoot:  cfg.Printer.SysfsRoot,
		deviceDir:  cfg.Printer.DeviceDir,
		lockDir:    cfg.Paths.DataDir,
		status:     ioctlStatus,
		writeGrace: defaultWriteGrace,
		logger:     logging.NewComponentLogger(logger, "usblp"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Devices lists the attached printers.
func (l *Link) Devices() ([]Device, error) {
	return Discover(l.sysfsRoot, l.deviceDir)
}

// Write sends payload to the first attached printer and returns it. The
// device is claimed exclusively across processes for the duration of the
// write.
//
// The node is opened in blocking mode, so a started write cannot be
// interrupted. When ctx ends first, Write waits a short grace period for the
// writer. If it is still blocked, the error wraps ErrWriteIndeterminate and
// the claim stays held until the write returns.
func (l *Link) Write(ctx context.Context, payload []byte) (Device, error) {
	devices, err := l.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("discover usb printers: %w", err)
	}
	if len(devices) == 0 {
		return Device{}, ErrNoDevice
	}
	dev := devices[0]

	lock := flock.New(filepath.Join(l.lockDir, "usblp-"+filepath.Base(dev.Node)+".lock"))
	locked, err := lock.TryLockContext(ctx, claimRetryDelay)
	if err != nil {
		return dev, fmt.Errorf("claim %s: %w", dev.Node, err)
	}
	if !locked {
		return dev, fmt.Errorf("claim %s: device busy", dev.Node)
	}

	f, err := openNode(dev.Node)
	if err != nil {
		_ = lock.Unlock()
		return dev, fmt.Errorf("open %s: %w", dev.Node, err)
	}
	release := func() {
		_ = f.Close()
		_ = lock.Unlock()
	}

	if err := l.checkStatus(f, dev); err != nil {
		release()
		return dev, err
	}

	result := make(chan error, 1)
	go func() { result <- writePayload(f, dev.Node, payload) }()

	select {
	case err := <-result:
		release()
		if err != nil {
			return dev, err
		}
	case <-ctx.Done():
		finished, werr := l.awaitWriter(result)
		if !finished {
			go func() {
				<-result
				release()
			}()
			logging.WarnWithContext(l.logger, "usb write still blocked after deadline", "device_write_indeterminate",
				logging.String("device", dev.Node),
				logging.String(logging.FieldErrorHint, "check the printer for a jam or a stalled job"),
				logging.String(logging.FieldImpact, "the label may still print from the usb device"),
			)
			return dev, fmt.Errorf("write %s: %w: %w", dev.Node, ErrWriteIndeterminate, ctx.Err())
		}
		release()
		if werr != nil {
			return dev, fmt.Errorf("write %s: %w", dev.Node, ctx.Err())
		}
	}

	l.logger.Debug("payload written to usb printer",
		logging.String("device", dev.Name()),
		logging.Int("bytes", len(payload)),
	)
	return dev, nil
}

func (l *Link) checkStatus(f *os.File, dev Device) error {
	status, ok, err := l.status(f)
	if err != nil {
		return fmt.Errorf("status %s: %w", dev.Node, err)
	}
	if !ok {
		l.logger.Debug("device does not report status", logging.String("device", dev.Node))
		return nil
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("status %s: %w", dev.Node, err)
	}
	return nil
}

// awaitWriter gives a writer that outlived its deadline a last chance to
// settle. A write that completed in that window counts as delivered.
func (l *Link) awaitWriter(result <-chan error) (bool, error) {
	timer := time.NewTimer(l.writeGrace)
	defer timer.Stop()
	select {
	case err := <-result:
		return true, err
	case <-timer.C:
		return false, nil
	}
}

func openNode(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

func writePayload(f *os.File, node string, payload []byte) error {
	n, err := f.Write(payload)
	switch {
	case err != nil:
		return fmt.Errorf("write %s: %w", node, err)
	case n != len(payload):
		return fmt.Errorf("write %s: short write: %d of %d bytes", node, n, len(payload))
	}
	return nil
}
