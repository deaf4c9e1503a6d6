package inputhook_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/inputhook"
)

func TestStdinHook_MapsEscapeAndF8(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	hook := inputhook.NewHookFromReader(ctx, strings.NewReader("esc\nf8\nignored\n"))

	var got []inputhook.Key
	for k := range hook.Events() {
		got = append(got, k)
		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, []inputhook.Key{inputhook.KeyEscape, inputhook.KeyF8}, got)
}
