package jobs

import (
	"context"
	"fmt"
	"log/slog"
)

// SpawnPool starts one goroutine per transform slot. Workers exit when ctx
// is canceled or Stop is called.
func (r *Runner) SpawnPool(ctx context.Context) {
	r.logger.Info("Spawning transform pool",
		slog.Int("concurrency", r.concurrency),
		slog.Int("queue_size", r.queueSize()),
	)

	for i := 0; i < r.concurrency; i++ {
		r.wg.Add(1)
		go r.workerLoop(ctx, i)
	}
}

func (r *Runner) workerLoop(ctx context.Context, workerNum int) {
	defer r.wg.Done()

	workerName := fmt.Sprintf("transform-%d", workerNum)
	r.logger.Debug("Worker goroutine started", slog.String("worker_name", workerName))

	for {
		select {
		case <-r.stopChan:
			r.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			r.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case req := <-r.jobsChan:
			r.metrics.SetQueueDepth(len(r.jobsChan))

			if r.stopped() {
				r.release()
				req.reply <- result{err: errStopped}
				continue
			}

			res := r.processJob(ctx, workerName, req)
			// the slot is free before the caller hears back; reply is
			// buffered since the caller may already be gone
			r.release()
			req.reply <- res
		}
	}
}
