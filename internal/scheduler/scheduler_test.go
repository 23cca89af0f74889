package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

var jst = time.FixedZone("JST", 9*3600)

func TestEveryAligned(t *testing.T) {
	trig := Every{Interval: 5 * time.Minute, Align: true}
	at := time.Date(2024, 1, 1, 10, 2, 30, 0, time.UTC)
	if got := trig.Next(at); !got.Equal(time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next: %s", got)
	}
	edge := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	if got := trig.Next(edge); !got.Equal(time.Date(2024, 1, 1, 10, 10, 0, 0, time.UTC)) {
		t.Fatalf("next must be strictly after, got %s", got)
	}
	loose := Every{Interval: 5 * time.Minute}
	if got := loose.Next(at); !got.Equal(at.Add(5 * time.Minute)) {
		t.Fatalf("unaligned next should add interval, got %s", got)
	}
}

func TestDailyAtInLocation(t *testing.T) {
	trig := DailyAt{Hour: 6, Minute: 0, Location: jst}

	before := time.Date(2024, 1, 1, 5, 59, 0, 0, jst)
	if got := trig.Next(before); !got.Equal(time.Date(2024, 1, 1, 6, 0, 0, 0, jst)) {
		t.Fatalf("expected same-day 06:00, got %s", got)
	}
	after := time.Date(2024, 1, 1, 6, 0, 0, 0, jst)
	if got := trig.Next(after); !got.Equal(time.Date(2024, 1, 2, 6, 0, 0, 0, jst)) {
		t.Fatalf("expected next-day 06:00, got %s", got)
	}
	// 21:30 UTC is 06:30 JST the next day, so the next 06:00 JST is a day later
	utc := time.Date(2024, 1, 1, 21, 30, 0, 0, time.UTC)
	if got := trig.Next(utc); !got.Equal(time.Date(2024, 1, 3, 6, 0, 0, 0, jst)) {
		t.Fatalf("expected 2024-01-03 06:00 JST, got %s", got)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("22:05")
	if err != nil || h != 22 || m != 5 {
		t.Fatalf("unexpected parse: %d %d %v", h, m, err)
	}
	for _, bad := range []string{"", "24:00", "7", "06:60", "aa:bb"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestRunDueFiresOnlyDueJobs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 5, 58, 0, 0, jst)}
	s := New(Options{Clock: clock}, zerolog.Nop())

	var breaking, morning int32
	mustRegister(t, s, Job{Name: "breaking", Trigger: Every{Interval: 5 * time.Minute, Align: true}, Run: func(ctx context.Context, now time.Time) error {
		atomic.AddInt32(&breaking, 1)
		return nil
	}})
	mustRegister(t, s, Job{Name: "morning", Trigger: DailyAt{Hour: 6, Location: jst}, Run: func(ctx context.Context, now time.Time) error {
		atomic.AddInt32(&morning, 1)
		return nil
	}})

	if started := s.RunDue(context.Background(), time.Date(2024, 1, 1, 5, 59, 0, 0, jst)); len(started) != 0 {
		t.Fatalf("nothing should be due yet, started %v", started)
	}

	started := s.RunDue(context.Background(), time.Date(2024, 1, 1, 6, 0, 0, 0, jst))
	s.Wait()
	if len(started) != 2 {
		t.Fatalf("both jobs should fire at 06:00, started %v", started)
	}
	if atomic.LoadInt32(&breaking) != 1 || atomic.LoadInt32(&morning) != 1 {
		t.Fatalf("unexpected counts breaking=%d morning=%d", breaking, morning)
	}

	next := s.Upcoming()
	if !next["morning"].Equal(time.Date(2024, 1, 2, 6, 0, 0, 0, jst)) {
		t.Fatalf("morning should move to next day, got %s", next["morning"])
	}
	if !next["breaking"].Equal(time.Date(2024, 1, 1, 6, 5, 0, 0, jst)) {
		t.Fatalf("breaking should move to 06:05, got %s", next["breaking"])
	}
}

func TestRunDuePassesScheduledTime(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 5, 0, 0, 0, jst)}
	s := New(Options{Clock: clock}, zerolog.Nop())

	got := make(chan time.Time, 1)
	mustRegister(t, s, Job{Name: "morning", Trigger: DailyAt{Hour: 6, Location: jst}, Run: func(ctx context.Context, now time.Time) error {
		got <- now
		return nil
	}})

	// the tick lands 40s after the fire time
	s.RunDue(context.Background(), time.Date(2024, 1, 1, 6, 0, 40, 0, jst))
	s.Wait()
	if at := <-got; !at.Equal(time.Date(2024, 1, 1, 6, 0, 0, 0, jst)) {
		t.Fatalf("job should see 06:00, got %s", at)
	}
}

func TestRunDueNeverOverlapsSameJob(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(Options{Clock: clock}, zerolog.Nop())

	release := make(chan struct{})
	var runs int32
	mustRegister(t, s, Job{Name: "slow", Trigger: Every{Interval: time.Minute, Align: true}, Run: func(ctx context.Context, now time.Time) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	}})

	first := s.RunDue(context.Background(), clock.now.Add(time.Minute))
	second := s.RunDue(context.Background(), clock.now.Add(2*time.Minute))
	if len(first) != 1 || len(second) != 0 {
		t.Fatalf("second trigger should be skipped while running: %v %v", first, second)
	}
	close(release)
	s.Wait()

	third := s.RunDue(context.Background(), clock.now.Add(3*time.Minute))
	s.Wait()
	if len(third) != 1 || atomic.LoadInt32(&runs) != 2 {
		t.Fatalf("job should run again once finished: started=%v runs=%d", third, runs)
	}
}

func TestJobErrorsAndPanicsAreContained(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(Options{Clock: clock}, zerolog.Nop())
	mustRegister(t, s, Job{Name: "fails", Trigger: Every{Interval: time.Minute}, Run: func(ctx context.Context, now time.Time) error {
		return errors.New("transient")
	}})
	mustRegister(t, s, Job{Name: "panics", Trigger: Every{Interval: time.Minute}, Run: func(ctx context.Context, now time.Time) error {
		panic("bug")
	}})

	s.RunDue(context.Background(), clock.now.Add(time.Minute))
	s.Wait()
	if got := s.RunDue(context.Background(), clock.now.Add(2*time.Minute)); len(got) != 2 {
		t.Fatalf("failed jobs should be retried on their next trigger, got %v", got)
	}
	s.Wait()
}

func TestRegisterValidation(t *testing.T) {
	s := New(Options{}, zerolog.Nop())
	if err := s.Register(Job{Name: "x"}); err == nil {
		t.Fatal("missing trigger and run should fail")
	}
	job := Job{Name: "x", Trigger: Every{Interval: time.Minute}, Run: func(context.Context, time.Time) error { return nil }}
	mustRegister(t, s, job)
	if err := s.Register(job); err == nil {
		t.Fatal("duplicate name should fail")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Tick: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func mustRegister(t *testing.T, s *Scheduler, job Job) {
	t.Helper()
	if err := s.Register(job); err != nil {
		t.Fatalf("register %s: %v", job.Name, err)
	}
}
