package irc

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// CloakAddress produces a deterministic opaque label for an IP literal. Each
// address chunk is replaced with the first eight hex characters of its SHA-1
// digest. IPv4 addresses lose their final octet and gain a literal "IP"
// chunk; IPv6 addresses lose their final group and gain "IPv6".
func CloakAddress(addr string) string {
	if strings.Contains(addr, ":") {
		return cloakIPv6(addr)
	}
	return cloakIPv4(addr)
}

func cloakIPv4(addr string) string {
	chunks := strings.Split(addr, ".")
	if len(chunks) != 4 {
		return addr
	}

	result := make([]string, 0, 4)
	for _, chunk := range chunks[:3] {
		result = append(result, cloakChunk(chunk))
	}
	result = append(result, "IP")

	return strings.Join(result, ".")
}

func cloakIPv6(addr string) string {
	chunks := strings.Split(addr, ":")
	if len(chunks) == 0 {
		return addr
	}

	result := make([]string, 0, len(chunks))
	for _, chunk := range chunks[:len(chunks)-1] {
		if chunk == "" {
			result = append(result, "")
			continue
		}
		result = append(result, cloakChunk(chunk))
	}
	result = append(result, "IPv6")

	return strings.Join(result, ":")
}

func cloakChunk(chunk string) string {
	sum := sha1.Sum([]byte(chunk))
	return hex.EncodeToString(sum[:])[:8]
}
