package dump

import (
	"fmt"
	"regexp"
	"strings"
)

// ParseFailure reports the byte offset at which the input stopped matching
// the dump grammar, together with the construct that was expected there.
// It is the only error kind Parse returns; no partial Report survives one.
type ParseFailure struct {
	Offset   int    // byte offset of the offending line's first character
	Line     int    // 1-based line number
	Expected string // grammar alternative that was being attempted
}

// Error implements the error interface.
func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure at offset %d (line %d): expected %s", e.Offset, e.Line, e.Expected)
}

var (
	// Thread block header: quoted display name followed by decorations and a
	// state descriptor, e.g.
	//   "main" #1 prio=5 os_prio=0 tid=0x7f nid=0x1b03 waiting on condition [0x7000]
	headerRE = regexp.MustCompile(`^"(.*?)"\s*(.*)$`)

	// Optional refinement line below a header:
	//   java.lang.Thread.State: TIMED_WAITING (sleeping)
	stateLineRE = regexp.MustCompile(`^\s+java\.lang\.Thread\.State:\s*(\S+)`)

	// Stack frame, recognized and skipped:
	//   at com.example.Worker.run(Worker.java:42)
	frameRE = regexp.MustCompile(`^\s+at\s+\S`)

	// Lock detail lines.
	lockedRE   = regexp.MustCompile(`^\s+-\s+locked\s+<([^>]+)>(?:\s+\(a?\s*([^)]+)\))?`)
	waitLockRE = regexp.MustCompile(`^\s+-\s+waiting to (?:re-)?lock(?: in wait\(\))?\s+<([^>]+)>(?:\s+\(a?\s*([^)]+)\))?`)
	waitOnRE   = regexp.MustCompile(`^\s+-\s+waiting on\s+<([^>]+)>(?:\s+\(a?\s*([^)]+)\))?`)
	parkingRE  = regexp.MustCompile(`^\s+-\s+parking to wait for\s+<([^>]+)>(?:\s+\(a?\s*([^)]+)\))?`)

	// Held ownable synchronizer inside a "Locked ownable synchronizers:" list:
	//   - <0x76ab62208> (a java.util.concurrent.locks.ReentrantLock$NonfairSync)
	synchronizerRE = regexp.MustCompile(`^\s+-\s+<([^>]+)>(?:\s+\(a?\s*([^)]+)\))?`)

	// Recognized-and-skipped detail lines.
	noneRE       = regexp.MustCompile(`^\s+-\s+None\s*$`)
	eliminatedRE = regexp.MustCompile(`^\s+-\s+eliminated\s+<`)
	classInitRE  = regexp.MustCompile(`^\s+-\s+waiting on the Class initialization monitor for\s+\S+`)
	synchHeadRE  = regexp.MustCompile(`^\s+Locked ownable synchronizers:\s*$`)

	// Preamble and trailer lines of real jstack output.
	timestampRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`)
	bannerRE    = regexp.MustCompile(`^Full thread dump\b`)
	jniRefsRE   = regexp.MustCompile(`^JNI global ref`)
	smrHeadRE   = regexp.MustCompile(`^Threads class SMR info:`)
	deadlockRE  = regexp.MustCompile(`^Found (?:one|\d+) Java-level deadlock`)

	// Header decorations: thread id, daemon flag, key=value pairs, trailing
	// stack pointer. Stripping these leaves only the state descriptor.
	decorationRE = regexp.MustCompile(`^(#\d+|daemon|[a-z_]+=\S+)\s*`)
	stackPtrRE   = regexp.MustCompile(`\s*\[0x[0-9a-fA-F]+\]\s*$`)
)

// headerStates maps the descriptor printed at the end of a header line to a
// ThreadState. Matching is by prefix; order matters (longest first).
var headerStates = []struct {
	prefix string
	state  ThreadState
}{
	{"waiting for monitor entry", StateBlocked},
	{"waiting on condition", StateWaiting},
	{"in Object.wait", StateWaiting},
	{"timed waiting", StateTimedWaiting},
	{"sleeping", StateTimedWaiting},
	{"runnable", StateRunnable},
	{"waiting", StateWaiting},
}

// stateTokens maps java.lang.Thread.State tokens to ThreadState.
var stateTokens = map[string]ThreadState{
	"RUNNABLE":      StateRunnable,
	"BLOCKED":       StateBlocked,
	"WAITING":       StateWaiting,
	"TIMED_WAITING": StateTimedWaiting,
	"NEW":           StateNew,
	"TERMINATED":    StateTerminated,
}

// parser holds the scan state for one Parse call.
type parser struct {
	report    *Report
	cur       *Thread
	seenHeld  map[string]bool // per-thread held addresses
	seenWaits map[string]bool // per-thread awaited addresses, keyed addr+kind
	skipSMR   bool            // inside "Threads class SMR info:" section
	done      bool            // deadlock trailer reached, rest is skipped
}

// Parse consumes the full dump text and returns a Report, or a *ParseFailure
// pointing at the first line that matches no grammar rule. It is purely
// functional over its input: no I/O, no shared state.
func Parse(text string) (*Report, error) {
	p := &parser{report: &Report{holders: make(map[string]*Thread)}}

	offset := 0
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		if err := p.parseLine(line, offset, i+1); err != nil {
			return nil, err
		}
		offset += len(raw) + 1
	}
	return p.report, nil
}

func (p *parser) parseLine(line string, offset, lineno int) error {
	if p.done {
		return nil // deadlock summary trailer, derived info we recompute
	}
	if strings.TrimSpace(line) == "" {
		p.skipSMR = false
		return nil
	}
	if p.skipSMR {
		return nil
	}

	switch {
	case deadlockRE.MatchString(line):
		p.done = true
		return nil
	case smrHeadRE.MatchString(line):
		p.skipSMR = true
		return nil
	case timestampRE.MatchString(line), bannerRE.MatchString(line), jniRefsRE.MatchString(line):
		return nil
	}

	if m := headerRE.FindStringSubmatch(line); m != nil {
		return p.openThread(m[1], m[2], offset, lineno)
	}
	if p.cur == nil {
		return &ParseFailure{Offset: offset, Line: lineno, Expected: "thread header"}
	}

	switch {
	case stateLineRE.MatchString(line):
		m := stateLineRE.FindStringSubmatch(line)
		if s, ok := stateTokens[m[1]]; ok {
			p.cur.State = s
		} else {
			p.cur.State = StateUnknown
		}
	case lockedRE.MatchString(line):
		m := lockedRE.FindStringSubmatch(line)
		p.addHeld(LockID{Addr: m[1], Class: strings.TrimSpace(m[2])})
	case waitLockRE.MatchString(line):
		m := waitLockRE.FindStringSubmatch(line)
		p.addWait(LockID{Addr: m[1], Class: strings.TrimSpace(m[2])}, WaitAcquire)
	case classInitRE.MatchString(line):
		// class-init monitors print no identity token, so no relation is modeled
	case waitOnRE.MatchString(line):
		m := waitOnRE.FindStringSubmatch(line)
		p.addWait(LockID{Addr: m[1], Class: strings.TrimSpace(m[2])}, WaitNotify)
	case parkingRE.MatchString(line):
		m := parkingRE.FindStringSubmatch(line)
		p.addWait(LockID{Addr: m[1], Class: strings.TrimSpace(m[2])}, WaitNotify)
	case noneRE.MatchString(line), eliminatedRE.MatchString(line), synchHeadRE.MatchString(line):
		// recognized, no model impact
	case synchronizerRE.MatchString(line):
		m := synchronizerRE.FindStringSubmatch(line)
		p.addHeld(LockID{Addr: m[1], Class: strings.TrimSpace(m[2])})
	case frameRE.MatchString(line):
		// stack frame content is out of scope
	default:
		return &ParseFailure{Offset: offset, Line: lineno, Expected: "stack frame, lock line, or thread header"}
	}
	return nil
}

// openThread starts a new thread block from a header line. The display name
// and a state descriptor are mandatory; all decorations are optional.
func (p *parser) openThread(name, rest string, offset, lineno int) error {
	descriptor := stripDecorations(rest)
	if name == "" {
		return &ParseFailure{Offset: offset, Line: lineno, Expected: "thread name"}
	}
	if descriptor == "" {
		return &ParseFailure{Offset: offset, Line: lineno, Expected: "thread state descriptor"}
	}

	t := &Thread{Name: name, State: descriptorState(descriptor)}
	p.report.Threads = append(p.report.Threads, t)
	p.cur = t
	p.seenHeld = make(map[string]bool)
	p.seenWaits = make(map[string]bool)
	return nil
}

func (p *parser) addHeld(lock LockID) {
	if p.seenHeld[lock.Addr] {
		return
	}
	p.seenHeld[lock.Addr] = true
	p.cur.Held = append(p.cur.Held, lock)
	// The dump format guarantees one holder per monitor; the first claim wins
	// so that a later wait-set entry for the same address cannot flip it.
	if _, taken := p.report.holders[lock.Addr]; !taken {
		p.report.holders[lock.Addr] = p.cur
	}
}

func (p *parser) addWait(lock LockID, kind WaitKind) {
	key := lock.Addr + "\x00" + kind.key()
	if p.seenWaits[key] {
		return
	}
	p.seenWaits[key] = true
	p.cur.Waits = append(p.cur.Waits, Wait{Lock: lock, Kind: kind})
}

func (k WaitKind) key() string {
	if k == WaitAcquire {
		return "acquire"
	}
	return "notify"
}

// stripDecorations removes the optional header fields (thread number, daemon
// marker, priority/os identifiers, trailing stack pointer) and returns the
// remaining state descriptor.
func stripDecorations(rest string) string {
	rest = stackPtrRE.ReplaceAllString(rest, "")
	for {
		trimmed := decorationRE.ReplaceAllString(rest, "")
		if trimmed == rest {
			break
		}
		rest = trimmed
	}
	return strings.TrimSpace(rest)
}

func descriptorState(descriptor string) ThreadState {
	for _, hs := range headerStates {
		if strings.HasPrefix(descriptor, hs.prefix) {
			return hs.state
		}
	}
	return StateUnknown
}
