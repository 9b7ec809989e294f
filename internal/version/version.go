// ABOUTME: Product and version constants
// ABOUTME: Reported by -version, the status endpoint and mDNS TXT records
package version

const (
	Version      = "0.1.0"
	Product      = "resonate-selector"
	Manufacturer = "Resonate"
)

// String returns "product version".
func String() string {
	return Product + " " + Version
}
