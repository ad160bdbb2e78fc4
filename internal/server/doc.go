// Package server implements the tiscam preview server.
//
// The server exposes an opened camera to the lab network so settings can be
// inspected and changed and frames can be viewed without the vendor tools.
//
// # Endpoints
//
//	GET  /api/settings    configuration record as JSON
//	POST /api/settings    apply a partial settings object (rolled back on failure)
//	GET  /api/formats     supported and device video formats
//	GET  /api/frame.tiff  one frame as a 16-bit grayscale TIFF
//	GET  /ws              WebSocket frame stream (?interval_ms= sets the pause)
//
// # Frame Messages
//
// Every frame on /ws is a binary message with a 16-byte little-endian header
// followed by width*height little-endian uint16 pixels:
//
//	offset 0   "TSC1"
//	offset 4   width  (uint32)
//	offset 8   height (uint32)
//	offset 12  sequence number (uint32, per stream, starting at 0)
//
// When acquisition fails the stream is closed with code 1011 and a short
// reason. On shutdown streams are closed with 1001.
//
// # Usage Example
//
//	srv := server.New(cam, &server.Config{Port: 8080, Advertise: true})
//
//	// Start blocks until ctx is done or SIGINT/SIGTERM arrives
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// A Camera is single-threaded. The server serialises every camera call, so
// a settings change waits for an in-flight frame and vice versa.
//
// # Discovery
//
// With Advertise set the server registers a discovery.ServiceType record
// carrying the camera model and tiscam version in TXT records.
package server
