package transport

import (
	"fmt"
	"time"

	"github.com/pion/stun/v3"
)

// DiscoverExternalAddr asks a STUN server what address/port the local UDP
// socket is visible as from the outside, used on the relay fallback path
// to decide whether a direct peer-to-peer UDP path might still work before
// committing to relaying everything through the rendezvous server. This is
// a single bind-request probe, not a full ICE agent — this domain has no
// symmetric-NAT traversal beyond "try direct, else relay".
func DiscoverExternalAddr(stunServerAddr string, timeout time.Duration) (string, uint16, error) {
	client, err := stun.Dial("udp4", stunServerAddr)
	if err != nil {
		return "", 0, fmt.Errorf("transport: stun dial: %w", err)
	}
	defer client.Close()

	message := stun.MustBuild(stun.TransactionID, stun.BindingRequest)

	var (
		addr    string
		port    uint16
		doneErr error
	)
	done := make(chan struct{})

	doErr := client.Do(message, func(res stun.Event) {
		defer close(done)
		if res.Error != nil {
			doneErr = res.Error
			return
		}
		var xorAddr stun.XORMappedAddress
		if err := xorAddr.GetFrom(res.Message); err != nil {
			doneErr = fmt.Errorf("transport: parse stun response: %w", err)
			return
		}
		addr = xorAddr.IP.String()
		port = uint16(xorAddr.Port)
	})
	if doErr != nil {
		return "", 0, fmt.Errorf("transport: stun request: %w", doErr)
	}

	select {
	case <-done:
	case <-time.After(timeout):
		return "", 0, fmt.Errorf("transport: stun request timed out")
	}

	return addr, port, doneErr
}
