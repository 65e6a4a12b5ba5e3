package discovery

import (
	"context"

	"github.com/grandcat/zeroconf"
)

// ZeroconfResolver is the production Resolver backed by multicast DNS-SD.
type ZeroconfResolver struct{}

// Browse implements Resolver. zeroconf delivers entries until ctx ends and
// closes its channel; this adapter converts them to engine entries.
func (ZeroconfResolver) Browse(ctx context.Context, serviceType, domain string, out chan<- ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return err
	}

	raw := make(chan *zeroconf.ServiceEntry)
	go func() {
		defer close(out)
		for e := range raw {
			entry := ServiceEntry{
				Instance: e.Instance,
				Host:     e.HostName,
				Port:     e.Port,
				TTL:      e.TTL,
			}
			for _, ip := range e.AddrIPv4 {
				entry.Addrs = append(entry.Addrs, ip)
			}
			for _, ip := range e.AddrIPv6 {
				entry.Addrs = append(entry.Addrs, ip)
			}
			select {
			case out <- entry:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, serviceType, domain, raw); err != nil {
		close(raw) // unblock the forwarding goroutine
		return err
	}
	return nil
}
