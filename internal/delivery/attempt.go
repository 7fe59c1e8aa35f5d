package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tagprint/internal/printer"
	"tagprint/internal/usblp"
)

// Job is one delivery request.
type Job struct {
	ID       string
	Payload  []byte
	UnitID   string
	Target   printer.Target
	Deadline time.Duration
}

// Result describes a successful step.
type Result struct {
	// Detail names where the payload went: a device, a host:port or a file.
	Detail string
	// Path is set by steps that leave an artifact on disk.
	Path string
}

// Attempt is one transport in the chain.
type Attempt interface {
	Name() string
	Attempt(ctx context.Context, job Job) (Result, error)
}

// DeviceWriter is satisfied by *usblp.Link.
type DeviceWriter interface {
	Write(ctx context.Context, payload []byte) (usblp.Device, error)
}

// Sender is satisfied by *printer.Client.
type Sender interface {
	Send(ctx context.Context, payload []byte, target printer.Target, deadline time.Duration) error
}

// DeviceAttempt writes to a locally attached USB printer.
type DeviceAttempt struct {
	Writer DeviceWriter
}

func (DeviceAttempt) Name() string { return TransportDevice }

func (a DeviceAttempt) Attempt(ctx context.Context, job Job) (Result, error) {
	if job.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Deadline)
		defer cancel()
	}
	dev, err := a.Writer.Write(ctx, job.Payload)
	if err != nil {
		return Result{}, err
	}
	return Result{Detail: dev.Name()}, nil
}

// SocketAttempt sends to the job's network target.
type SocketAttempt struct {
	Sender Sender
}

func (SocketAttempt) Name() string { return TransportSocket }

func (a SocketAttempt) Attempt(ctx context.Context, job Job) (Result, error) {
	if err := a.Sender.Send(ctx, job.Payload, job.Target, job.Deadline); err != nil {
		return Result{}, err
	}
	return Result{Detail: job.Target.Address()}, nil
}

// ArtifactPrefix starts every fallback file name.
const ArtifactPrefix = "tagcode_"

// ArtifactExt is the fallback file extension.
const ArtifactExt = ".zpl"

// FileFallback writes the payload to a file the operator can print by hand.
type FileFallback struct {
	Dir string
	Now func() time.Time
}

func (FileFallback) Name() string { return TransportFile }

func (f FileFallback) Attempt(_ context.Context, job Job) (Result, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	name := ArtifactName(job.UnitID, now())
	path, err := writeAtomic(f.Dir, name, job.Payload)
	if err != nil {
		return Result{}, err
	}
	return Result{Detail: name, Path: path}, nil
}

// ArtifactName builds tagcode_<unit>_<epochMillis>.zpl.
func ArtifactName(unitID string, at time.Time) string {
	return fmt.Sprintf("%s%s_%d%s", ArtifactPrefix, sanitizeUnit(unitID), at.UnixMilli(), ArtifactExt)
}

// IsArtifactName reports whether name looks like a fallback artifact and
// contains no path elements.
func IsArtifactName(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		strings.HasPrefix(name, ArtifactPrefix) &&
		strings.HasSuffix(name, ArtifactExt)
}

func sanitizeUnit(unitID string) string {
	unitID = strings.TrimSpace(unitID)
	if unitID == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, unitID)
}

func writeAtomic(dir, name string, payload []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create fallback dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("chmod artifact: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return "", fmt.Errorf("rename artifact: %w", err)
	}
	return path, nil
}
