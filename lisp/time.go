package lisp

import "time"

// InstallTime binds the small set of clock primitives (get-universal-time,
// get-internal-real-time, sleep) as ordinary global bindings rather than
// through a separate loadable library.
func InstallTime(env *Env) {
	root := env.root()
	def := func(name string, fn PrimFunc) { root.Define(root.rt.Symbols.Intern(name), Fun(name, fn)) }

	def("get-universal-time", func(env *Env, args *Value) (*Value, error) {
		if err := wantArity("get-universal-time", argSlice(args), 0); err != nil {
			return nil, err
		}
		const secondsFromZeroToUnixEpoch = 62135596800
		return Long(time.Now().Unix() + secondsFromZeroToUnixEpoch), nil
	})
	def("get-internal-real-time", func(env *Env, args *Value) (*Value, error) {
		if err := wantArity("get-internal-real-time", argSlice(args), 0); err != nil {
			return nil, err
		}
		return Long(time.Now().UnixMilli()), nil
	})
	// get-internal-run-time and get-internal-cpu-time report wall-clock
	// time rather than true process/CPU time: there is no portable
	// stdlib-only way to read CPU time, and wall-clock is a reasonable
	// stand-in for a single-threaded interpreter.
	def("get-internal-run-time", func(env *Env, args *Value) (*Value, error) {
		if err := wantArity("get-internal-run-time", argSlice(args), 0); err != nil {
			return nil, err
		}
		return Long(time.Now().UnixMilli()), nil
	})
	def("get-internal-cpu-time", func(env *Env, args *Value) (*Value, error) {
		if err := wantArity("get-internal-cpu-time", argSlice(args), 0); err != nil {
			return nil, err
		}
		return Long(time.Now().UnixMilli()), nil
	})
	// get-decoded-time returns a single 9-element list (second minute hour
	// date month year day daylight-p zone) rather than nine separate
	// values, since the interpreter has no multiple-return-value form.
	def("get-decoded-time", func(env *Env, args *Value) (*Value, error) {
		if err := wantArity("get-decoded-time", argSlice(args), 0); err != nil {
			return nil, err
		}
		now := time.Now()
		_, zoneOffset := now.Zone()
		return List(
			Long(int64(now.Second())), Long(int64(now.Minute())), Long(int64(now.Hour())),
			Long(int64(now.Day())), Long(int64(now.Month())), Long(int64(now.Year())),
			Long(int64(now.Weekday())), boolValueIn(env, now.IsDST()), Long(int64(zoneOffset/3600)),
		), nil
	})
	def("sleep", func(env *Env, args *Value) (*Value, error) {
		a := argSlice(args)
		if err := wantArity("sleep", a, 1); err != nil {
			return nil, err
		}
		f, _ := numOf(a[0])
		time.Sleep(time.Duration(f * float64(time.Second)))
		return Nil(), nil
	})
	root.Define(root.rt.Symbols.Intern("internal-time-units-per-second"), Long(1000))
}
