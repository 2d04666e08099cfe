// Package stream monitors the health of unbounded sources: consumer lag,
// record freshness, throughput, and schema drift. Poll is invoked on a
// fixed cadence by an external scheduler; the monitor never runs its own
// loop, so tests drive it directly with synthetic handles.
//
//	monitor := stream.NewMonitor(stream.Thresholds{
//		MaxLag:       10_000,
//		MaxFreshness: 5 * time.Minute,
//	})
//
//	handle := stream.NewKafkaHandle(reader)
//	snap, err := monitor.Poll(ctx, handle)
//	if snap.State == stream.Degraded {
//		// hand off to alerting
//	}
//
// Schema drift is advisory: drift events appear on the snapshot and in the
// logs but never degrade the classification by themselves.
package stream
