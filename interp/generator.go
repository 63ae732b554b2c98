package interp

import (
	"github.com/wippyai/jsvm/jserrors"
	"github.com/wippyai/jsvm/object"
	"github.com/wippyai/jsvm/value"
)

// coroDriver is the generator-function suspension mechanism (§4.3, §9:
// "Implementations map this to whichever coroutine facility exists in the
// target ecosystem"). The original Rust implementation drives a generator
// body as a tokio async task talking to its caller over mpsc channels
// (original_source/rusty-js-core/src/interpreter/clousure.rs run_async);
// this is the same design translated into Go's native coroutine facility,
// a goroutine plus a pair of unbuffered channels.
//
// Exactly one goroutine runs fr's bytecode at a time: either it is
// blocked inside resumeCh.recv waiting for the next next()/return()/
// throw() call, or it holds the only reference to fr and the driver's
// caller is blocked in yieldCh/doneCh.recv waiting for it to suspend or
// finish. The two sides never touch fr concurrently.
type coroDriver struct {
	resumeCh chan resumeMsg
	yieldCh  chan value.Value
	doneCh   chan doneMsg
	started  bool
	finished bool
}

// resumeMsg is what Generator.next/return/throw injects at a suspended
// OpYield: either an ordinary resumption value, or a value/error that
// must surface as if the `yield` expression itself had thrown/returned.
type resumeMsg struct {
	value    value.Value
	isThrow  bool
	isReturn bool
}

// doneMsg is the frame's final outcome: a normal return value or an
// uncaught throw, exactly like runFrame's own (value.Value, error) pair.
type doneMsg struct {
	value value.Value
	err   error
}

func newCoroDriver() *coroDriver {
	return &coroDriver{
		resumeCh: make(chan resumeMsg),
		yieldCh:  make(chan value.Value),
		doneCh:   make(chan doneMsg),
	}
}

// newGenerator creates a KindGenerator object wrapping fr: fr's bytecode
// does not run at all until the first Generator.next call (ECMAScript
// generators only begin executing their body on the first next()).
func (ip *Interp) newGenerator(fr *Frame) value.Value {
	fr.driver = newCoroDriver()
	o := object.New(ip.rt.Prototypes().Generator)
	o.Kind = object.KindGenerator
	o.Host = &generatorState{fr: fr}
	return ip.rt.NewObject(o)
}

// generatorState is the Host payload of a KindGenerator object.
type generatorState struct {
	fr *Frame
}

// suspend is called from inside the running frame's goroutine by OpYield:
// it hands v to whichever of next/return/throw is waiting, then blocks
// until the next call resumes it (possibly with a throw/return request).
func (d *coroDriver) suspend(v value.Value) resumeMsg {
	d.yieldCh <- v
	return <-d.resumeCh
}

// runGenerator is the goroutine body launched by the first next() call.
func (ip *Interp) runGenerator(fr *Frame, first resumeMsg) {
	defer func() {
		if r := recover(); r != nil {
			fr.driver.doneCh <- doneMsg{value: value.Undefined, err: ip.raise(recoverAsError(r))}
		}
	}()
	if first.isReturn {
		fr.driver.doneCh <- doneMsg{value: first.value}
		return
	}
	if first.isThrow {
		fr.driver.doneCh <- doneMsg{err: &thrown{V: first.value}}
		return
	}
	v, err := ip.runFrame(fr)
	fr.driver.doneCh <- doneMsg{value: v, err: err}
}

// recoverAsError adapts a recovered panic value into an error raise can
// box, so a generator goroutine never takes the whole process down.
func recoverAsError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &thrown{}
}

// generatorResume drives fr one step with msg, starting the backing
// goroutine on the very first call. It is the shared body of
// GeneratorNext/GeneratorReturn/GeneratorThrow.
func (ip *Interp) generatorResume(gs *generatorState, msg resumeMsg) (value.Value, bool, error) {
	d := gs.fr.driver
	if d.finished {
		if msg.isThrow {
			return value.Undefined, true, &thrown{V: msg.value}
		}
		return value.Undefined, true, nil
	}
	if !d.started {
		d.started = true
		go ip.runGenerator(gs.fr, msg)
	} else {
		d.resumeCh <- msg
	}
	select {
	case v := <-d.yieldCh:
		return v, false, nil
	case done := <-d.doneCh:
		d.finished = true
		return done.value, true, done.err
	}
}

// GeneratorNext implements `gen.next(v)` / the iterator protocol's next()
// for a generator object: v resumes the suspended `yield` expression.
func (ip *Interp) GeneratorNext(genObj *object.Object, v value.Value) (value.Value, bool, error) {
	gs := genObj.Host.(*generatorState)
	return ip.generatorResume(gs, resumeMsg{value: v})
}

// GeneratorReturn implements `gen.return(v)`: forces the generator to
// terminate as if it had executed `return v` at the suspended yield.
func (ip *Interp) GeneratorReturn(genObj *object.Object, v value.Value) (value.Value, bool, error) {
	gs := genObj.Host.(*generatorState)
	if !gs.fr.driver.started {
		gs.fr.driver.finished = true
		return v, true, nil
	}
	return ip.generatorResume(gs, resumeMsg{value: v, isReturn: true})
}

// GeneratorThrow implements `gen.throw(v)`: forces the suspended `yield`
// expression to behave as though it had thrown v, resumable by an
// enclosing try/catch inside the generator body.
func (ip *Interp) GeneratorThrow(genObj *object.Object, v value.Value) (value.Value, bool, error) {
	gs := genObj.Host.(*generatorState)
	if !gs.fr.driver.started {
		gs.fr.driver.finished = true
		return value.Undefined, true, &thrown{V: v}
	}
	return ip.generatorResume(gs, resumeMsg{value: v, isThrow: true})
}

// resolveAwait implements §4.3's Await rule for this core's scope: a
// thenable's resolution machinery is an external collaborator (§1,
// "built-in library objects... Promise method tables"), so the only
// promise-shaped value this core can resolve without suspending is one
// that was never a promise to begin with. Any KindPromise object is, from
// the core's perspective, forever pending — it throws the §7 Internal
// error by that name rather than silently hanging.
func (ip *Interp) resolveAwait(v value.Value) (value.Value, error) {
	if v.IsObject() && ip.rt.Object(v).Kind == object.KindPromise {
		return value.Undefined, jserrors.AwaitOnForeverPendingPromise()
	}
	return v, nil
}
