package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func newEntry(instance, host string, port int, v4, v6 []net.IP, txt []string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = host
	entry.Port = port
	entry.AddrIPv4 = v4
	entry.AddrIPv6 = v6
	entry.Text = txt
	return entry
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name        string
		entry       *zeroconf.ServiceEntry
		wantNil     bool
		wantIP      string
		wantPort    int
		wantModel   string
		wantVersion string
	}{
		{
			name: "preview server with IPv4",
			entry: newEntry("tiscam on lab-pc", "lab-pc.local.", 8080,
				[]net.IP{net.ParseIP("192.168.4.16")}, nil,
				TXTRecords("DMK 33UJ003", "v1.0.0")),
			wantIP:      "192.168.4.16",
			wantPort:    8080,
			wantModel:   "DMK 33UJ003",
			wantVersion: "v1.0.0",
		},
		{
			name: "IPv6 only",
			entry: newEntry("tiscam", "lab.local.", 8080,
				nil, []net.IP{net.ParseIP("fe80::1")}, nil),
			wantIP:   "fe80::1",
			wantPort: 8080,
		},
		{
			name: "prefers IPv4",
			entry: newEntry("tiscam", "lab.local.", 9000,
				[]net.IP{net.ParseIP("10.0.0.5")}, []net.IP{net.ParseIP("fe80::2")}, nil),
			wantIP:   "10.0.0.5",
			wantPort: 9000,
		},
		{
			name: "TXT record without value",
			entry: newEntry("tiscam", "lab.local.", 8080,
				[]net.IP{net.ParseIP("10.0.0.5")}, nil, []string{"model"}),
			wantIP:   "10.0.0.5",
			wantPort: 8080,
		},
		{
			name:    "no address",
			entry:   newEntry("tiscam", "lab.local.", 8080, nil, nil, nil),
			wantNil: true,
		},
		{
			name:    "no port",
			entry:   newEntry("tiscam", "lab.local.", 0, []net.IP{net.ParseIP("10.0.0.5")}, nil, nil),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if inst != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", inst)
				}
				return
			}
			if inst == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil instance")
			}

			if inst.IP != tt.wantIP {
				t.Errorf("inst.IP = %v, want %v", inst.IP, tt.wantIP)
			}
			if inst.Port != tt.wantPort {
				t.Errorf("inst.Port = %v, want %v", inst.Port, tt.wantPort)
			}
			if inst.Model != tt.wantModel {
				t.Errorf("inst.Model = %v, want %v", inst.Model, tt.wantModel)
			}
			if inst.Version != tt.wantVersion {
				t.Errorf("inst.Version = %v, want %v", inst.Version, tt.wantVersion)
			}
			if inst.Name != tt.entry.Instance {
				t.Errorf("inst.Name = %v, want %v", inst.Name, tt.entry.Instance)
			}
			if inst.DiscoveredAt.IsZero() {
				t.Error("inst.DiscoveredAt not set")
			}
		})
	}
}

func TestTXTRecords(t *testing.T) {
	got := TXTRecords("DMK 33UJ003", "dev")
	want := []string{"model=DMK 33UJ003", "version=dev"}
	if len(got) != len(want) {
		t.Fatalf("TXTRecords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TXTRecords()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("NewScanner().Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if DefaultScanTimeout != 5*time.Second {
		t.Errorf("DefaultScanTimeout = %v, want 5s", DefaultScanTimeout)
	}
}
