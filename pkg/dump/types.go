package dump

import "fmt"

// ThreadState is the execution state of a thread as reported by the dump.
// The vocabulary of stack-dump tools drifts between JVM versions, so text
// that matches no known state maps to StateUnknown instead of failing.
type ThreadState int

const (
	StateUnknown ThreadState = iota
	StateRunnable
	StateBlocked
	StateWaiting
	StateTimedWaiting
	StateNew
	StateTerminated
)

// String returns the canonical lowercase name of the state.
func (s ThreadState) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateBlocked:
		return "blocked"
	case StateWaiting:
		return "waiting"
	case StateTimedWaiting:
		return "timed-waiting"
	case StateNew:
		return "new"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// LockID identifies a monitor or ownable synchronizer.
// Addr is the native identity token printed by the dump (e.g. 0x76ab62208)
// and is the sole basis for equality; Class is the human-readable type label.
type LockID struct {
	Addr  string
	Class string
}

// Label returns the display form of the lock: the class label when present,
// otherwise the raw address token.
func (l LockID) Label() string {
	if l.Class != "" {
		return fmt.Sprintf("%s@%s", l.Class, l.Addr)
	}
	return l.Addr
}

// WaitKind distinguishes the two kinds of awaited-lock relations.
type WaitKind int

const (
	// WaitAcquire marks a thread blocked trying to enter a monitor owned by
	// another thread. These waits participate in deadlock analysis.
	WaitAcquire WaitKind = iota
	// WaitNotify marks a thread parked on a monitor's wait-set. The monitor
	// is released while waiting, so these never create blocked-on edges.
	WaitNotify
)

// Wait is one awaited-lock relation of a thread.
type Wait struct {
	Lock LockID
	Kind WaitKind
}

// Thread is one parsed thread block: its display name, state, the monitors
// it holds and the monitors it awaits. Held and Waits preserve the order of
// appearance in the dump and contain no duplicate lock addresses.
type Thread struct {
	Name  string
	State ThreadState
	Held  []LockID
	Waits []Wait
}

// HoldsLocks reports whether the thread has any lock relation at all.
// Threads without any relation never appear in the rendered graph.
func (t *Thread) HoldsLocks() bool {
	return len(t.Held) > 0 || len(t.Waits) > 0
}

// Report is a complete parsed dump. Threads preserve source order, which
// downstream consumers rely on for deterministic output. A Report is never
// mutated after Parse returns it.
type Report struct {
	Threads []*Thread

	holders map[string]*Thread // lock address -> owning thread
}

// Holder returns the thread holding the lock with the given address token,
// or nil if the dump shows no owner for it.
func (r *Report) Holder(addr string) *Thread {
	return r.holders[addr]
}
