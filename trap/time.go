package trap

import "time"

// registerTime wires SYS_TIME/GMT_TIME/DATE_TIME_*/TIMER_*. Timers are
// kept in a per-process map keyed by a handle word
// the bytecode itself owns (pushed by TIMER_START, passed back to
// TIMER_END/TIMER_ELAPSED), mirroring the file/socket handle convention
// of "opaque word values stored in the first slot of their host object".
func registerTime(t Table) {
	timers := map[int64]time.Time{}
	var nextHandle int64

	t[SysTime] = func(ctx Context) error {
		return ctx.PushInt(time.Now().Unix())
	}
	t[GmtTime] = func(ctx Context) error {
		return ctx.PushInt(time.Now().UTC().Unix())
	}
	t[DateTimeSetAll] = func(ctx Context) error {
		// args: year, month, day, hour, min, sec (six ints); returns
		// the Unix timestamp they encode.
		var parts [6]int64
		for i := 5; i >= 0; i-- {
			v, err := ctx.PopInt()
			if err != nil {
				return err
			}
			parts[i] = v
		}
		tm := time.Date(int(parts[0]), time.Month(parts[1]), int(parts[2]),
			int(parts[3]), int(parts[4]), int(parts[5]), 0, time.UTC)
		return ctx.PushInt(tm.Unix())
	}
	t[DateTimeAddDays] = dateTimeAdd(func(d int64) time.Duration { return time.Duration(d) * 24 * time.Hour })
	t[DateTimeAddHours] = dateTimeAdd(func(d int64) time.Duration { return time.Duration(d) * time.Hour })
	t[DateTimeAddMins] = dateTimeAdd(func(d int64) time.Duration { return time.Duration(d) * time.Minute })
	t[DateTimeAddSecs] = dateTimeAdd(func(d int64) time.Duration { return time.Duration(d) * time.Second })

	t[TimerStart] = func(ctx Context) error {
		nextHandle++
		h := nextHandle
		timers[h] = time.Now()
		return ctx.PushInt(h)
	}
	t[TimerEnd] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		delete(timers, h)
		return nil
	}
	t[TimerElapsed] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		start, ok := timers[h]
		if !ok {
			return ctx.PushInt(0)
		}
		return ctx.PushInt(time.Since(start).Milliseconds())
	}
}

func dateTimeAdd(delta func(int64) time.Duration) Func {
	return func(ctx Context) error {
		amount, err := ctx.PopInt()
		if err != nil {
			return err
		}
		base, err := ctx.PopInt()
		if err != nil {
			return err
		}
		tm := time.Unix(base, 0).UTC().Add(delta(amount))
		return ctx.PushInt(tm.Unix())
	}
}
