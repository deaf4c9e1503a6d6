package transport_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/protocol"
	"netplay-adapter/transport"
)

func TestControlChannel_ListenAndDial(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	accepted := make(chan *transport.ControlChannel, 1)
	acceptErr := make(chan error, 1)
	portCh := make(chan uint, 1)

	go func() {
		server, port, err := transport.ListenControl(ctx, "127.0.0.1:0")
		if err != nil {
			acceptErr <- err
			return
		}
		portCh <- port
		accepted <- server
	}()

	// Give the listener a moment to bind before dialing.
	time.Sleep(20 * time.Millisecond)

	var port uint
	select {
	case port = <-portCh:
	case err := <-acceptErr:
		t.Fatalf("listen failed: %v", err)
	case <-time.After(time.Second):
		t.Fatal("listener never reported its port")
	}

	client, err := transport.DialControl(ctx, "127.0.0.1:"+strconv.FormatUint(uint64(port), 10), 10*time.Millisecond)
	assert.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.Close()

	sent := protocol.ErrorMessage{Code: "x", Reason: "y"}
	assert.NoError(t, client.Send(sent))

	received, err := server.Receive()
	assert.NoError(t, err)
	assert.Equal(t, sent, received)
}
