package melissa

import (
	"strings"
)

// ServiceName identifies one of the Melissa web services.
type ServiceName string

const (
	ServiceExpressEntry ServiceName = "expressentry"
	ServiceIPLocator    ServiceName = "iplocator"
)

var serviceHosts = map[ServiceName]string{
	ServiceExpressEntry: "expressentry.melissadata.net",
	ServiceIPLocator:    "globalip.melissadata.net/v4",
}

// Services returns the known service names.
func Services() []ServiceName {
	return []ServiceName{ServiceExpressEntry, ServiceIPLocator}
}

// ResolveHost returns the fixed host for a service. The host may carry a
// path suffix (iplocator is versioned under /v4).
func ResolveHost(service ServiceName) (string, error) {
	host, ok := serviceHosts[service]
	if !ok {
		return "", &ConfigurationError{Field: "service", Value: string(service), Err: ErrUnknownService}
	}
	return host, nil
}

// BuildURL returns https://{host}/web{endpoint} for the given service.
func BuildURL(service ServiceName, endpoint string) (string, error) {
	host, err := ResolveHost(service)
	if err != nil {
		return "", err
	}
	return "https://" + host + "/web" + normalizeEndpoint(endpoint), nil
}

// buildURLWithBase swaps scheme and authority for base while keeping the
// service's path suffix, so https://globalip.melissadata.net/v4/web/x becomes
// {base}/v4/web/x.
func buildURLWithBase(base string, service ServiceName, endpoint string) (string, error) {
	if base == "" {
		return BuildURL(service, endpoint)
	}
	host, err := ResolveHost(service)
	if err != nil {
		return "", err
	}
	suffix := ""
	if i := strings.IndexByte(host, '/'); i >= 0 {
		suffix = host[i:]
	}
	return strings.TrimRight(base, "/") + suffix + "/web" + normalizeEndpoint(endpoint), nil
}

func normalizeEndpoint(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		return "/" + endpoint
	}
	return endpoint
}
