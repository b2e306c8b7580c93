package nodebuilder

import (
	"context"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/raulk/go-watchdog"
	"go.uber.org/fx"
)

var (
	// the watchdog is process wide, while tests run several nodes in one process
	onceWatchdog = sync.Once{}
	logWatchdog  = logging.Logger("watchdog")
)

// invokeWatchdog starts the memory watchdog that forces GC as the heap grows towards the system
// memory limit. Heap profiles are captured in pprofdir once usage passes 90%.
func invokeWatchdog(pprofdir string) func(lc fx.Lifecycle) {
	return func(lc fx.Lifecycle) {
		onceWatchdog.Do(func() {
			watchdog.Logger = logWatchdog
			watchdog.HeapProfileDir = pprofdir
			watchdog.HeapProfileMaxCaptures = 10
			watchdog.HeapProfileThreshold = 0.9

			policy := watchdog.NewWatermarkPolicy(0.50, 0.60, 0.70, 0.85, 0.90, 0.925, 0.95)
			err, stop := watchdog.SystemDriven(0, time.Second*5, policy)
			if err != nil {
				// sampling works without it, only OOM protection is lost
				logWatchdog.Warnw("memory watchdog is not running", "err", err)
				return
			}

			lc.Append(fx.StopHook(func(context.Context) {
				stop()
			}))
		})
	}
}
