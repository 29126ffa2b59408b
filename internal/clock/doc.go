// Package clock provides an injectable time source so the scheduler loop
// can be driven deterministically in tests.
//
// Production code uses Real(). Tests use Fake(), whose time only moves when
// Advance is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 2, 29, 0, 0, time.Local))
//	go loop(ctx, c)
//	c.WaitForTimers(1)       // loop is sleeping between ticks
//	c.Advance(time.Minute)   // wake it deterministically
package clock
