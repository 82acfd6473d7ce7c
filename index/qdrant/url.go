package qdrant

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// defaultGRPCPort is the gRPC port exposed by Qdrant Cloud clusters.
// Cloud URLs are usually given with the REST port (6333); the client
// talks gRPC, so an explicit 6333 is rewritten.
const defaultGRPCPort = 6334

// endpoint is the parsed form of a Qdrant cluster URL.
type endpoint struct {
	Host   string
	Port   int
	UseTLS bool
}

// parseClusterURL extracts gRPC connection parameters from a cluster URL
// such as "https://xyz-example.eu-central.aws.cloud.qdrant.io:6333".
// A bare host is accepted and assumed to be TLS.
func parseClusterURL(raw string) (endpoint, error) {
	if raw == "" {
		return endpoint{}, fmt.Errorf("cluster URL is empty")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return endpoint{}, fmt.Errorf("invalid cluster URL %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return endpoint{}, fmt.Errorf("invalid cluster URL %q: no host", raw)
	}

	ep := endpoint{
		Host:   u.Hostname(),
		Port:   defaultGRPCPort,
		UseTLS: u.Scheme != "http",
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return endpoint{}, fmt.Errorf("invalid port in cluster URL %q: %w", raw, err)
		}
		// 6333 is the REST port; keep gRPC
		if port != 6333 {
			ep.Port = port
		}
	}

	return ep, nil
}
