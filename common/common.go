package common

import (
	"fmt"
	"net"
	"strings"
)

type CheckIP interface {
	CheckIPType(ip string) (int, error)
}

type CheckIPs struct{}

var _ CheckIP = (*CheckIPs)(nil)

func (c *CheckIPs) CheckIPType(ip string) (int, error) {
	ipaddr := net.ParseIP(NormalizeIP(ip))

	if ipaddr == nil {
		return 0, fmt.Errorf("failed to parse ip %q", ip)
	}

	if ipaddr.To4() != nil {
		return 4, nil
	}

	return 6, nil
}

// NormalizeIP trims whitespace, brackets and an IPv6 zone.
func NormalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	ip = strings.TrimSuffix(strings.TrimPrefix(ip, "["), "]")
	if i := strings.LastIndexByte(ip, '%'); i >= 0 {
		ip = ip[:i]
	}
	return ip
}
