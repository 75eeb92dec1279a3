package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Schedule runs task right away and then on every interval until ctx is done.
// A run that is still in progress delays the next one instead of overlapping it.
func Schedule(ctx context.Context, every time.Duration, task func(ctx context.Context)) error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	if _, err := scheduler.Every(every).Do(task, ctx); err != nil {
		return fmt.Errorf("fail to schedule sync every %s, error: %v", every, err)
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	return nil
}
