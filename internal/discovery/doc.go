// Package discovery finds tiscam preview servers on the local network.
//
// `tiscam serve` advertises itself over multicast DNS as a "_tiscam._tcp"
// service whose TXT records carry the camera model and the tiscam version.
// This package browses for that service type and returns the servers that
// answered before the timeout.
//
// # Usage Example
//
//	instances, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, inst := range instances {
//	    fmt.Printf("%s -> %s\n", inst, inst.StreamURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Servers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
