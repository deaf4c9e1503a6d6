package ipc_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/ipc"
	"netplay-adapter/protocol"
)

func TestChannel_AcceptsAndExchangesMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	channel, err := ipc.NewChannel(ctx)
	assert.NoError(t, err)

	fromGame := make(chan protocol.Message, 4)
	listenErr := make(chan error, 1)

	go func() {
		listenErr <- channel.Listen(fromGame)
	}()

	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("tcp", "127.0.0.1:"+strconv.FormatUint(uint64(channel.Port()), 10))
	assert.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, channel.Send(protocol.MenuIndex{Index: 2}))

	buf := make([]byte, 256)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	assert.NoError(t, err)
	assert.Greater(t, n, 0)
}
