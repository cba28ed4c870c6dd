// Package scheduler runs in-process periodic jobs.
//
// Jobs are registered with a Schedule and run by Start until its context ends:
//
//	s := scheduler.New(scheduler.WithLogger(log))
//	_ = s.AddJob("billing.reconcile_all", scheduler.Every(6*time.Hour), func(ctx context.Context) error {
//		_, err := reconciler.ReconcileAll(ctx)
//		return err
//	})
//	err := s.Start(ctx)
//
// A job never overlaps itself: when a run is still in progress at its next due
// time, that tick is skipped. Job errors and panics are logged and the schedule
// continues.
package scheduler
