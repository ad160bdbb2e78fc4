package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/discovery"
	"github.com/muurk/tiscam/internal/logging"
	"github.com/muurk/tiscam/internal/server"
	"github.com/muurk/tiscam/internal/version"
)

// releaseTimeout bounds the wait for a running acquisition on shutdown
const releaseTimeout = 5 * time.Second

var (
	serveHost     string
	servePort     int
	noMDNS        bool
	serveInterval time.Duration
	scanTimeout   int
	versionJSON   bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)

	addSettingsFlags(serveCmd)
	addProfileFlag(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", server.DefaultPort, "Listen port")
	serveCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Do not advertise the server over mDNS")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", server.DefaultStreamInterval, "Default time between preview frames")

	scanCmd.Flags().IntVarP(&scanTimeout, "timeout", "t", 0, "Scan timeout in seconds (default: preferences.discover_timeout)")

	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output build information as JSON")
}

// serveCmd runs the preview server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve settings and a live preview over HTTP",
	Long: `Open the camera and serve it on the network:

  GET  /api/settings   current configuration record
  POST /api/settings   apply a settings update (rolled back on failure)
  GET  /api/formats    supported and advertised video formats
  GET  /api/frame.tiff a single 16-bit TIFF frame
  GET  /ws             binary frame stream (?interval_ms=)

The server is advertised over mDNS as _tiscam._tcp so 'tiscam scan' can find
it. Stop it with Ctrl+C.`,
	Example: `  # Serve on the default port with a 640x480 preview
  tiscam serve --format "Y16 (640x480)" --trigger=false

  # Serve on localhost only, without mDNS
  tiscam serve --host 127.0.0.1 --port 9000 --no-mdns`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	cam, closeFn, err := openCamera(settings)
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}

	srv := server.New(cam, &server.Config{
		Host:           serveHost,
		Port:           servePort,
		Advertise:      !noMDNS,
		StreamInterval: serveInterval,
	})
	defer releaseServedCamera(srv, closeFn)
	if err := srv.Listen(); err != nil {
		return err
	}

	cfg := cam.Info()
	fmt.Printf("Serving %s (%s) on http://%s\n", cfg.Name, cfg.VideoFormat, srv.Addr())
	if !noMDNS {
		fmt.Printf("Advertised as %s\n", discovery.ServiceType)
	}
	fmt.Println("Press Ctrl+C to stop")

	return srv.Serve(context.Background())
}

// releaseServedCamera closes the camera once no stream is using it. A frame
// still waiting on the driver (no timeout, no trigger) keeps the camera; it
// is left open rather than closed underneath the acquisition.
func releaseServedCamera(srv *server.Server, closeFn func()) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := srv.ReleaseCamera(ctx, func(*camera.Camera) { closeFn() }); err != nil {
		logging.Warn("Camera left open: an acquisition is still in progress", zap.Error(err))
	}
}

// scanCmd finds preview servers on the local network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover tiscam servers on the network",
	Long: `Scan the local network for tiscam preview servers using mDNS/Bonjour
(service type _tiscam._tcp).`,
	Example: `  # Scan with the default timeout
  tiscam scan

  # Scan for longer on busy networks
  tiscam scan --timeout 10`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	timeout := scanTimeout
	if timeout <= 0 && registry.Preferences != nil {
		timeout = registry.Preferences.DiscoverTimeout
	}
	if timeout <= 0 {
		timeout = int(discovery.DefaultScanTimeout / time.Second)
	}

	fmt.Printf("Scanning for tiscam servers (timeout: %ds)...\n\n", timeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	instances, err := discovery.Scan(ctx, time.Duration(timeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(instances) == 0 {
		fmt.Println("No servers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure 'tiscam serve' is running without --no-mdns")
		fmt.Println("  - Check that both machines are on the same network segment")
		fmt.Println("  - Multicast traffic (UDP 5353) may be blocked by a firewall")
		fmt.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	fmt.Printf("Found %d server(s):\n\n", len(instances))

	for i, inst := range instances {
		fmt.Printf("%d. %s\n", i+1, inst.Name)
		if inst.Model != "" {
			fmt.Printf("   Model:    %s\n", inst.Model)
		}
		if inst.Version != "" {
			fmt.Printf("   Version:  %s\n", inst.Version)
		}
		fmt.Printf("   Settings: %s/api/settings\n", inst.BaseURL())
		fmt.Printf("   Preview:  %s\n", inst.StreamURL())
		fmt.Println()
	}
	return nil
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionJSON {
			out, err := json.MarshalIndent(version.Info(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		fmt.Printf("tiscam %s\n", version.Full())
		return nil
	},
}
