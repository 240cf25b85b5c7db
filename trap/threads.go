package trap

import "time"

// registerThreads wires THREAD_SLEEP/THREAD_JOIN. THREAD_SLEEP needs no
// interpreter-private state and so is a plain time.Sleep; THREAD_JOIN
// defers to ctx.JoinAsync, since the registry of outstanding
// ASYNC_MTHD_CALL workers it waits on belongs to package interp, not
// this one.
func registerThreads(t Table) {
	t[ThreadSleep] = func(ctx Context) error {
		ms, err := ctx.PopInt()
		if err != nil {
			return err
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return nil
	}
	t[ThreadJoin] = func(ctx Context) error {
		return ctx.JoinAsync()
	}
}
