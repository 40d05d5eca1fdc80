package dump

import (
	"errors"
	"strings"
	"testing"
)

// cycleDump is a minimal three-way deadlock: a waits for b's lock, b for c's,
// c for a's.
const cycleDump = `"worker-a" #12 prio=5 os_prio=0 tid=0x00007f nid=0x1b03 waiting for monitor entry [0x00007000]
   java.lang.Thread.State: BLOCKED (on object monitor)
	at com.example.Task.run(Task.java:10)
	- waiting to lock <0x0b> (a java.lang.Object)
	- locked <0x0a> (a java.lang.Object)

"worker-b" #13 prio=5 os_prio=0 tid=0x00007e nid=0x1b04 waiting for monitor entry [0x00007100]
   java.lang.Thread.State: BLOCKED (on object monitor)
	at com.example.Task.run(Task.java:10)
	- waiting to lock <0x0c> (a java.lang.Object)
	- locked <0x0b> (a java.lang.Object)

"worker-c" #14 prio=5 os_prio=0 tid=0x00007d nid=0x1b05 waiting for monitor entry [0x00007200]
   java.lang.Thread.State: BLOCKED (on object monitor)
	at com.example.Task.run(Task.java:10)
	- waiting to lock <0x0a> (a java.lang.Object)
	- locked <0x0c> (a java.lang.Object)
`

func TestParseCycleDump(t *testing.T) {
	r, err := Parse(cycleDump)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if len(r.Threads) != 3 {
		t.Fatalf("Parse() returned %d threads, want 3", len(r.Threads))
	}

	names := []string{"worker-a", "worker-b", "worker-c"}
	for i, want := range names {
		if r.Threads[i].Name != want {
			t.Errorf("Threads[%d].Name = %q, want %q", i, r.Threads[i].Name, want)
		}
		if r.Threads[i].State != StateBlocked {
			t.Errorf("Threads[%d].State = %v, want blocked", i, r.Threads[i].State)
		}
	}

	a := r.Threads[0]
	if len(a.Held) != 1 || a.Held[0].Addr != "0x0a" {
		t.Errorf("worker-a Held = %+v, want single lock 0x0a", a.Held)
	}
	if len(a.Waits) != 1 || a.Waits[0].Lock.Addr != "0x0b" || a.Waits[0].Kind != WaitAcquire {
		t.Errorf("worker-a Waits = %+v, want acquire-wait on 0x0b", a.Waits)
	}
	if a.Held[0].Class != "java.lang.Object" {
		t.Errorf("worker-a Held[0].Class = %q, want java.lang.Object", a.Held[0].Class)
	}
}

func TestParseHolderIndex(t *testing.T) {
	r, err := Parse(cycleDump)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if got := r.Holder("0x0a"); got != r.Threads[0] {
		t.Errorf("Holder(0x0a) = %v, want worker-a", got)
	}
	if got := r.Holder("0x0c"); got != r.Threads[2] {
		t.Errorf("Holder(0x0c) = %v, want worker-c", got)
	}
	if got := r.Holder("0xdead"); got != nil {
		t.Errorf("Holder(0xdead) = %v, want nil", got)
	}
}

func TestParseHeaderDecorations(t *testing.T) {
	// All decorations are optional and may appear in any mix.
	inputs := []string{
		`"main" runnable`,
		`"main" #1 runnable`,
		`"main" daemon prio=5 runnable`,
		`"main" #1 daemon prio=10 os_prio=0 cpu=3.71ms elapsed=1.93s tid=0x00007f nid=0x1b03 runnable [0x0000700004]`,
	}
	for _, in := range inputs {
		r, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", in, err)
		}
		if len(r.Threads) != 1 || r.Threads[0].Name != "main" {
			t.Fatalf("Parse(%q) threads = %+v, want one thread main", in, r.Threads)
		}
		if r.Threads[0].State != StateRunnable {
			t.Errorf("Parse(%q) state = %v, want runnable", in, r.Threads[0].State)
		}
	}
}

func TestParseHeaderStates(t *testing.T) {
	cases := []struct {
		descriptor string
		want       ThreadState
	}{
		{"runnable", StateRunnable},
		{"waiting for monitor entry", StateBlocked},
		{"waiting on condition", StateWaiting},
		{"in Object.wait()", StateWaiting},
		{"timed waiting", StateTimedWaiting},
		{"sleeping", StateTimedWaiting},
		{"waiting", StateWaiting},
		{"doing something novel", StateUnknown},
	}
	for _, tc := range cases {
		r, err := Parse(`"t" #1 ` + tc.descriptor)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tc.descriptor, err)
		}
		if got := r.Threads[0].State; got != tc.want {
			t.Errorf("descriptor %q parsed as %v, want %v", tc.descriptor, got, tc.want)
		}
	}
}

func TestParseStateLineRefines(t *testing.T) {
	in := `"t" #1 waiting on condition
   java.lang.Thread.State: TIMED_WAITING (sleeping)
`
	r, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := r.Threads[0].State; got != StateTimedWaiting {
		t.Errorf("State = %v, want timed-waiting (refined by state line)", got)
	}
}

func TestParseUnknownStateToken(t *testing.T) {
	in := `"t" #1 runnable
   java.lang.Thread.State: SOMETHING_NEW
`
	r, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := r.Threads[0].State; got != StateUnknown {
		t.Errorf("State = %v, want unknown for unrecognized token", got)
	}
}

func TestParseNotifyWaits(t *testing.T) {
	in := `"waiter" #2 in Object.wait() [0x00007000]
   java.lang.Thread.State: WAITING (on object monitor)
	at java.lang.Object.wait(Native Method)
	- waiting on <0x0a> (a java.lang.Object)
	- locked <0x0a> (a java.lang.Object)

"parker" #3 waiting on condition [0x00007100]
   java.lang.Thread.State: WAITING (parking)
	at jdk.internal.misc.Unsafe.park(Native Method)
	- parking to wait for  <0x0b> (a java.util.concurrent.locks.AbstractQueuedSynchronizer$ConditionObject)
`
	r, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	w := r.Threads[0]
	if len(w.Waits) != 1 || w.Waits[0].Kind != WaitNotify {
		t.Errorf("waiter Waits = %+v, want one notify-wait", w.Waits)
	}
	if len(w.Held) != 1 || w.Held[0].Addr != "0x0a" {
		t.Errorf("waiter Held = %+v, want 0x0a", w.Held)
	}

	p := r.Threads[1]
	if len(p.Waits) != 1 || p.Waits[0].Kind != WaitNotify || p.Waits[0].Lock.Addr != "0x0b" {
		t.Errorf("parker Waits = %+v, want notify-wait on 0x0b", p.Waits)
	}
}

func TestParseOwnableSynchronizers(t *testing.T) {
	in := `"pool-1-thread-1" #9 waiting on condition [0x00007000]
   java.lang.Thread.State: WAITING (parking)
	at jdk.internal.misc.Unsafe.park(Native Method)

   Locked ownable synchronizers:
	- <0x76ab62208> (a java.util.concurrent.locks.ReentrantLock$NonfairSync)

"pool-1-thread-2" #10 runnable [0x00007100]
   java.lang.Thread.State: RUNNABLE

   Locked ownable synchronizers:
	- None
`
	r, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(r.Threads[0].Held) != 1 || r.Threads[0].Held[0].Addr != "0x76ab62208" {
		t.Errorf("thread-1 Held = %+v, want synchronizer 0x76ab62208", r.Threads[0].Held)
	}
	if len(r.Threads[1].Held) != 0 {
		t.Errorf("thread-2 Held = %+v, want none", r.Threads[1].Held)
	}
}

func TestParseDuplicateLockLines(t *testing.T) {
	in := `"t" #1 runnable
	- locked <0x0a> (a java.lang.Object)
	- locked <0x0a> (a java.lang.Object)
	- waiting to lock <0x0b> (a java.lang.Object)
	- waiting to lock <0x0b> (a java.lang.Object)
`
	r, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(r.Threads[0].Held) != 1 {
		t.Errorf("Held = %+v, want deduplicated single entry", r.Threads[0].Held)
	}
	if len(r.Threads[0].Waits) != 1 {
		t.Errorf("Waits = %+v, want deduplicated single entry", r.Threads[0].Waits)
	}
}

func TestParseFirstHolderWins(t *testing.T) {
	// Two threads claiming the same monitor: the dump guarantees one holder,
	// so a duplicate claim must not flip ownership.
	in := `"first" #1 runnable
	- locked <0x0a> (a java.lang.Object)

"second" #2 runnable
	- locked <0x0a> (a java.lang.Object)
`
	r, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := r.Holder("0x0a"); got != r.Threads[0] {
		t.Errorf("Holder(0x0a) = %q, want first", got.Name)
	}
}

func TestParsePreambleAndTrailers(t *testing.T) {
	in := `2026-08-25 10:15:42
Full thread dump OpenJDK 64-Bit Server VM (17.0.2+8 mixed mode, sharing):

Threads class SMR info:
_java_thread_list=0x00007f7b2c002cb0, length=13, elements={
0x00007f7b6c028ac0, 0x00007f7b6c17d000
}

"main" #1 runnable [0x00007000]
   java.lang.Thread.State: RUNNABLE
	at com.example.Main.main(Main.java:5)

JNI global refs: 12, weak refs: 0

Found one Java-level deadlock:
=============================
this trailer is free-form and must be ignored
`
	r, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(r.Threads) != 1 || r.Threads[0].Name != "main" {
		t.Fatalf("threads = %+v, want only main", r.Threads)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, in := range []string{"", "\n", "\n\n\n"} {
		r, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", in, err)
		}
		if len(r.Threads) != 0 {
			t.Errorf("Parse(%q) threads = %+v, want none", in, r.Threads)
		}
	}
}

func TestParseFailureJunkFirstLine(t *testing.T) {
	_, err := Parse("not a thread dump\n")
	if err == nil {
		t.Fatal("Parse() succeeded on junk input, want failure")
	}

	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("error is %T, want *ParseFailure", err)
	}
	if pf.Offset != 0 {
		t.Errorf("Offset = %d, want 0", pf.Offset)
	}
	if pf.Line != 1 {
		t.Errorf("Line = %d, want 1", pf.Line)
	}
	if !strings.Contains(err.Error(), "offset 0") {
		t.Errorf("Error() = %q, should reference offset 0", err.Error())
	}
}

func TestParseFailureOffset(t *testing.T) {
	in := "\"main\" #1 runnable\n\t??? garbage detail\n"
	_, err := Parse(in)

	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("error is %T, want *ParseFailure", err)
	}
	if want := len("\"main\" #1 runnable\n"); pf.Offset != want {
		t.Errorf("Offset = %d, want %d", pf.Offset, want)
	}
	if pf.Line != 2 {
		t.Errorf("Line = %d, want 2", pf.Line)
	}
}

func TestParseFailureHeaderWithoutDescriptor(t *testing.T) {
	_, err := Parse(`"main" #1 daemon prio=5`)
	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("error is %T, want *ParseFailure", err)
	}
	if pf.Expected != "thread state descriptor" {
		t.Errorf("Expected = %q, want thread state descriptor", pf.Expected)
	}
}

func TestParseFailureEmptyName(t *testing.T) {
	_, err := Parse(`"" #1 runnable`)
	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("error is %T, want *ParseFailure", err)
	}
	if pf.Expected != "thread name" {
		t.Errorf("Expected = %q, want thread name", pf.Expected)
	}
}

func TestParseFailureDetailBeforeHeader(t *testing.T) {
	_, err := Parse("\t- locked <0x0a> (a java.lang.Object)\n")
	var pf *ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("error is %T, want *ParseFailure", err)
	}
	if pf.Expected != "thread header" {
		t.Errorf("Expected = %q, want thread header", pf.Expected)
	}
}

func TestParseCRLFInput(t *testing.T) {
	in := strings.ReplaceAll(cycleDump, "\n", "\r\n")
	r, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse() error on CRLF input: %v", err)
	}
	if len(r.Threads) != 3 {
		t.Errorf("threads = %d, want 3", len(r.Threads))
	}
}

func TestParseOrderPreserved(t *testing.T) {
	var b strings.Builder
	names := []string{"zeta", "alpha", "mid", "alpha-2"}
	for _, n := range names {
		b.WriteString(`"` + n + `" #1 runnable` + "\n\n")
	}
	r, err := Parse(b.String())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	for i, n := range names {
		if r.Threads[i].Name != n {
			t.Errorf("Threads[%d].Name = %q, want %q (source order)", i, r.Threads[i].Name, n)
		}
	}
}

func TestLockIDLabel(t *testing.T) {
	if got := (LockID{Addr: "0x0a", Class: "java.lang.Object"}).Label(); got != "java.lang.Object@0x0a" {
		t.Errorf("Label() = %q", got)
	}
	if got := (LockID{Addr: "0x0a"}).Label(); got != "0x0a" {
		t.Errorf("Label() = %q, want bare address", got)
	}
}

func TestThreadStateString(t *testing.T) {
	cases := map[ThreadState]string{
		StateRunnable:     "runnable",
		StateBlocked:      "blocked",
		StateWaiting:      "waiting",
		StateTimedWaiting: "timed-waiting",
		StateNew:          "new",
		StateTerminated:   "terminated",
		StateUnknown:      "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
