package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tagprint/internal/catalog"
	"tagprint/internal/printer"
	"tagprint/internal/usblp"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCatalog verifies that the production catalog parses.
func CheckCatalog(path string) Result {
	const name = "Production catalog"

	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d productions)", path, len(cat.Productions))}
}

// CheckPrinter sends an empty label to the network printer.
func CheckPrinter(ctx context.Context, prober Prober, target printer.Target, deadline time.Duration) Result {
	const name = "Network printer"

	if err := target.Validate(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := prober.Probe(ctx, target, deadline); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%v)", target, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", target)}
}

// CheckUSB reports attached USB printers. No printer attached is a failure
// because the device link is enabled.
func CheckUSB(sysfsRoot, deviceDir string) Result {
	const name = "USB printer"

	devices, err := usblp.Discover(sysfsRoot, deviceDir)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("discovery failed (%v)", err)}
	}
	if len(devices) == 0 {
		return Result{Name: name, Detail: "none attached"}
	}
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name())
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(names, ", ")}
}

// CheckNtfy verifies the ntfy server answers for the configured topic.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, strings.TrimSpace(topic), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}
