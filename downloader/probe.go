package downloader

import (
	"context"

	"parafetch/internal"
)

// Probe issues a HEAD request to learn the resource's total length and
// range support, per §4.1. Network failures are surfaced, not retried.
type Probe struct {
	transport internal.Transport
}

func NewProbe(transport internal.Transport) *Probe {
	return &Probe{transport: transport}
}

func (p *Probe) Probe(ctx context.Context, url string) (internal.ResourceDescriptor, error) {
	desc, err := p.transport.Head(ctx, url)
	if err != nil {
		return internal.ResourceDescriptor{}, internal.NewProbeFailedError("HEAD request failed", err)
	}
	if desc.TotalBytes <= 0 {
		return desc, internal.NewProbeFailedError("resource did not report a positive content-length", nil)
	}
	return desc, nil
}
