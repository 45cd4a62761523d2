package common

import (
	"context"
	"math"

	"github.com/bytedance/gopkg/util/gopool"
)

type ctxKey string

// StopChanKey carries a chan bool that is closed-over by stream readers; the
// pool panic handler signals it so the writer side does not block forever.
const StopChanKey ctxKey = "stop_chan"

var relayGoPool gopool.Pool

func init() {
	relayGoPool = gopool.NewPool("gopool.RelayPool", math.MaxInt32, gopool.NewConfig())
	relayGoPool.SetPanicHandler(func(ctx context.Context, i interface{}) {
		if stopChan, ok := ctx.Value(StopChanKey).(chan bool); ok {
			SafeSendBool(stopChan, true)
		}
	})
}

func RelayCtxGo(ctx context.Context, f func()) {
	relayGoPool.CtxGo(ctx, f)
}

// SafeSendBool sends without blocking and without panicking on a closed channel.
func SafeSendBool(ch chan bool, value bool) (closed bool) {
	defer func() {
		if recover() != nil {
			closed = true
		}
	}()
	select {
	case ch <- value:
	default:
	}
	return false
}
