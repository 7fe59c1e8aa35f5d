package config

const (
	defaultDataDir          = "~/.local/share/tagprint"
	defaultLogDir           = "~/.local/share/tagprint/logs"
	defaultFallbackDir      = "~/.local/share/tagprint/labels"
	defaultCatalogPath      = "~/.config/tagprint/data.json"
	defaultAPIBind          = "127.0.0.1:3000"
	defaultPrinterHost      = "192.168.1.100"
	defaultPrinterPort      = 9100
	defaultPrinterTimeoutMS = 5000
	defaultSysfsRoot        = "/sys/bus/usb/devices"
	defaultDeviceDir        = "/dev/usb"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultNtfyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			FallbackDir: defaultFallbackDir,
			CatalogPath: defaultCatalogPath,
			APIBind:     defaultAPIBind,
		},
		Printer: Printer{
			Host:       defaultPrinterHost,
			Port:       defaultPrinterPort,
			TimeoutMS:  defaultPrinterTimeoutMS,
			DeviceLink: true,
			SysfsRoot:  defaultSysfsRoot,
			DeviceDir:  defaultDeviceDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Delivered:      false,
			Fallback:       true,
			Failures:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
