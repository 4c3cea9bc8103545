package action

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-simlock/internal/lock"
)

// gatedPerformer blocks every operation until release is closed.
type gatedPerformer struct {
	*lock.Device
	started chan struct{}
	release chan struct{}
}

func newGatedPerformer() *gatedPerformer {
	return &gatedPerformer{
		Device:  lock.NewDevice(),
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedPerformer) AddUser(u lock.User) error {
	g.started <- struct{}{}
	<-g.release
	return g.Device.AddUser(u)
}

func newTestDispatcher(t *testing.T, p Performer, cfg Config) *Dispatcher {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(p, cfg)
	d.Start(ctx)
	t.Cleanup(func() {
		cancel()
		d.Close()
	})
	return d
}

func req(name, input string) Request {
	return Request{Name: name, Input: json.RawMessage(input), Source: "test"}
}

func TestDispatcher_PerformScenario(t *testing.T) {
	dev := lock.NewDevice()
	d := newTestDispatcher(t, dev, Config{})
	ctx := context.Background()

	steps := []Request{
		req(AddUser, `{"userId": 3, "pin": "1234"}`),
		req(AddUser, `{"userId": 3, "pin": "9999", "userName": "Bob"}`),
		req(SetPinCode, `{"userId": 3, "pin": "0000"}`),
	}
	for _, r := range steps {
		a, err := d.Perform(ctx, r)
		if err != nil {
			t.Fatalf("Perform(%s) error = %v", r.Name, err)
		}
		if a.Status != StatusCompleted {
			t.Fatalf("Perform(%s) status = %s", r.Name, a.Status)
		}
		if a.TimeCompleted == nil {
			t.Fatalf("Perform(%s) TimeCompleted not set", r.Name)
		}
	}

	users := dev.Users()
	if len(users) != 1 || users[0].PIN != "0000" || users[0].Name == nil || *users[0].Name != "Bob" {
		t.Fatalf("users = %+v", users)
	}

	if _, err := d.Perform(ctx, req(RemoveUser, `{"userId": 3}`)); err != nil {
		t.Fatalf("Perform(removeUser) error = %v", err)
	}
	if n := len(dev.Users()); n != 0 {
		t.Errorf("users = %d, want 0", n)
	}
	if !dev.Locked() {
		t.Error("actions changed locked")
	}
}

func TestDispatcher_RemoveMissingUserCompletes(t *testing.T) {
	dev := lock.NewDevice()
	d := newTestDispatcher(t, dev, Config{})

	for _, input := range []string{`{"userId": 7}`, `{}`, ``} {
		a, err := d.Perform(context.Background(), req(RemoveUser, input))
		if err != nil {
			t.Fatalf("Perform(%q) error = %v", input, err)
		}
		if a.Status != StatusCompleted {
			t.Errorf("Perform(%q) status = %s", input, a.Status)
		}
	}
	if len(dev.Users()) != 0 {
		t.Errorf("users = %v", dev.Users())
	}
}

func TestDispatcher_SlotCoercion(t *testing.T) {
	dev := lock.NewDevice()
	d := newTestDispatcher(t, dev, Config{})
	ctx := context.Background()

	if _, err := d.Perform(ctx, req(AddUser, `{"userId": "4", "pin": "1111"}`)); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if _, err := d.Perform(ctx, req(SetPinCode, `{"userId": 4.0, "pin": "2222"}`)); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}

	u, ok := dev.User(4)
	if !ok || u.PIN != "2222" {
		t.Errorf("user 4 = %+v, %v", u, ok)
	}
}

func TestDispatcher_SubmitRejects(t *testing.T) {
	d := newTestDispatcher(t, lock.NewDevice(), Config{})

	tests := []struct {
		name    string
		req     Request
		wantErr error
		wantMsg string
	}{
		{"unknown action", req("unlock", `{}`), ErrUnknownAction, ""},
		{"missing userId", req(AddUser, `{"pin": "1234"}`), ErrInvalidInput, "userId is required"},
		{"missing pin", req(SetPinCode, `{"userId": 1}`), ErrInvalidInput, "pin is required"},
		{"slot too high", req(AddUser, `{"userId": 10, "pin": "1"}`), ErrInvalidInput, "userId must be at most 9"},
		{"slot negative", req(RemoveUser, `{"userId": -1}`), ErrInvalidInput, "userId must be at least 0"},
		{"non-numeric pin", req(AddUser, `{"userId": 1, "pin": "12ab"}`), ErrInvalidInput, "pin must be 1-16 digits"},
		{"pin as number", req(AddUser, `{"userId": 1, "pin": 1234}`), ErrInvalidInput, "pin must be a string"},
		{"fractional slot", req(AddUser, `{"userId": 1.5, "pin": "1"}`), ErrInvalidInput, "userId must be an integer"},
		{"bad status", req(AddUser, `{"userId": 1, "pin": "1", "status": "On"}`), ErrInvalidInput, "status must be one of: Disabled Enabled"},
		{"bad date", req(AddUser, `{"userId": 1, "pin": "1", "startDate": "soon"}`), ErrInvalidInput, "startDate must be a date or date-time"},
		{"end before start", req(AddUser, `{"userId": 1, "pin": "1", "startDate": "2026-02-01", "endDate": "2026-01-01"}`), ErrInvalidInput, "endDate is before startDate"},
		{"not an object", req(AddUser, `[1]`), ErrInvalidInput, "input must be an object"},
		{"malformed", req(AddUser, `{"userId":`), ErrInvalidInput, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Submit(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}

	if n := len(d.List()); n != 0 {
		t.Errorf("rejected requests recorded: %d", n)
	}
}

func TestDispatcher_SubmitReturnsCreated(t *testing.T) {
	p := newGatedPerformer()
	d := newTestDispatcher(t, p, Config{})
	defer close(p.release)

	a, err := d.Submit(context.Background(), req(AddUser, `{"userId": 1, "pin": "1"}`))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if a.Status != StatusCreated {
		t.Errorf("status = %s, want created", a.Status)
	}
	if a.ID == "" || a.Href() != "/actions/addUser/"+a.ID {
		t.Errorf("href = %q", a.Href())
	}
	if a.TimeRequested.IsZero() || a.TimeCompleted != nil {
		t.Errorf("times = %v, %v", a.TimeRequested, a.TimeCompleted)
	}

	<-p.started
	got, err := d.Get(AddUser, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("status while applying = %s, want pending", got.Status)
	}
}

func TestDispatcher_AppliesInSubmissionOrder(t *testing.T) {
	dev := lock.NewDevice()
	d := newTestDispatcher(t, dev, Config{QueueSize: 128})
	ctx := context.Background()

	var last Action
	for i := 0; i < 50; i++ {
		pin := []byte("0000")
		pin[3] = byte('0' + i%10)
		a, err := d.Submit(ctx, Request{
			Name:  AddUser,
			Input: json.RawMessage(`{"userId": 5, "pin": "` + string(pin) + `"}`),
		})
		if err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
		last = a
	}

	if _, err := d.Wait(ctx, last.Name, last.ID); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	u, _ := dev.User(5)
	if u.PIN != "0009" {
		t.Errorf("PIN = %q, want last submitted %q", u.PIN, "0009")
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	p := newGatedPerformer()
	d := newTestDispatcher(t, p, Config{QueueSize: 2})
	defer close(p.release)
	ctx := context.Background()

	// First action occupies the worker; two more fill the queue.
	if _, err := d.Submit(ctx, req(AddUser, `{"userId": 1, "pin": "1"}`)); err != nil {
		t.Fatal(err)
	}
	<-p.started
	for i := 0; i < 2; i++ {
		if _, err := d.Submit(ctx, req(RemoveUser, `{}`)); err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
	}

	if _, err := d.Submit(ctx, req(RemoveUser, `{}`)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Submit() error = %v, want ErrQueueFull", err)
	}
}

func TestDispatcher_CancelQueued(t *testing.T) {
	p := newGatedPerformer()
	d := newTestDispatcher(t, p, Config{})
	ctx := context.Background()

	first, _ := d.Submit(ctx, req(AddUser, `{"userId": 1, "pin": "1"}`))
	<-p.started
	second, _ := d.Submit(ctx, req(AddUser, `{"userId": 2, "pin": "2"}`))

	if err := d.Cancel(AddUser, first.ID); !errors.Is(err, ErrActionInProgress) {
		t.Errorf("Cancel(pending) error = %v, want ErrActionInProgress", err)
	}
	if err := d.Cancel(AddUser, second.ID); err != nil {
		t.Fatalf("Cancel(created) error = %v", err)
	}
	if _, err := d.Get(AddUser, second.ID); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Get(cancelled) error = %v, want ErrActionNotFound", err)
	}

	close(p.release)
	if _, err := d.Wait(ctx, AddUser, first.ID); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	// A later action proves the cancelled one was skipped, not just delayed.
	if _, err := d.Perform(ctx, req(RemoveUser, `{"userId": 9}`)); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.User(2); ok {
		t.Error("cancelled action was applied")
	}
	if _, ok := p.User(1); !ok {
		t.Error("first action not applied")
	}
}

func TestDispatcher_CancelFinishedForgets(t *testing.T) {
	d := newTestDispatcher(t, lock.NewDevice(), Config{})
	a, err := d.Perform(context.Background(), req(RemoveUser, `{}`))
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Cancel(RemoveUser, a.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := d.Cancel(RemoveUser, a.ID); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("second Cancel() error = %v, want ErrActionNotFound", err)
	}
	if err := d.Cancel(AddUser, "nope"); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Cancel(unknown) error = %v", err)
	}
}

func TestDispatcher_ListAndHistoryBound(t *testing.T) {
	d := newTestDispatcher(t, lock.NewDevice(), Config{MaxHistory: 3})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		name := RemoveUser
		if i%2 == 0 {
			name = SetPinCode
		}
		input := `{}`
		if name == SetPinCode {
			input = `{"userId": 0, "pin": "1"}`
		}
		a, err := d.Perform(ctx, req(name, input))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, a.ID)
	}

	all := d.List()
	if len(all) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(all))
	}
	for i, a := range all {
		if a.ID != ids[i+2] {
			t.Errorf("List()[%d] = %s, want %s (oldest evicted first)", i, a.ID, ids[i+2])
		}
	}

	for _, a := range d.ListByName(SetPinCode) {
		if a.Name != SetPinCode {
			t.Errorf("ListByName returned %s", a.Name)
		}
	}
	if n := len(d.ListByName(SetPinCode)); n != 2 {
		t.Errorf("len(ListByName(setPinCode)) = %d, want 2", n)
	}
}

func TestDispatcher_GetNameMustMatch(t *testing.T) {
	d := newTestDispatcher(t, lock.NewDevice(), Config{})
	a, _ := d.Perform(context.Background(), req(RemoveUser, `{}`))

	if _, err := d.Get(AddUser, a.ID); !errors.Is(err, ErrActionNotFound) {
		t.Errorf("Get(wrong name) error = %v", err)
	}
	got, err := d.Get(RemoveUser, a.ID)
	if err != nil || got.ID != a.ID {
		t.Errorf("Get() = %+v, %v", got, err)
	}
}

func TestDispatcher_OnStatusTransitions(t *testing.T) {
	d := NewDispatcher(lock.NewDevice(), Config{})

	var mu sync.Mutex
	var seen []Status
	d.OnStatus(func(a Action) {
		mu.Lock()
		seen = append(seen, a.Status)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Close()

	if _, err := d.Perform(ctx, req(AddUser, `{"userId": 0, "pin": "1"}`)); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusCreated, StatusPending, StatusCompleted}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestDispatcher_SlowObserverDoesNotBlockSubmit(t *testing.T) {
	d := newTestDispatcher(t, lock.NewDevice(), Config{})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	var mu sync.Mutex
	var slowSeen []Status
	d.OnStatus(func(a Action) {
		if a.Source != "slow" {
			return
		}
		mu.Lock()
		slowSeen = append(slowSeen, a.Status)
		mu.Unlock()
		if a.Status == StatusCreated {
			close(entered)
			<-release
		}
	})

	slowDone := make(chan Action, 1)
	go func() {
		a, _ := d.Perform(ctx, Request{Name: AddUser, Input: json.RawMessage(`{"userId": 1, "pin": "1"}`), Source: "slow"})
		slowDone <- a
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("observer never saw the created status")
	}

	submitted := make(chan error, 1)
	go func() {
		_, err := d.Submit(ctx, req(RemoveUser, `{"userId": 2}`))
		submitted <- err
	}()
	select {
	case err := <-submitted:
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked behind a slow status observer")
	}

	release <- struct{}{}
	select {
	case a := <-slowDone:
		if a.Status != StatusCompleted {
			t.Errorf("slow action status = %s, want completed", a.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("slow action never finished")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusCreated, StatusPending, StatusCompleted}
	if len(slowSeen) != len(want) {
		t.Fatalf("transitions = %v, want %v", slowSeen, want)
	}
	for i := range want {
		if slowSeen[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, slowSeen[i], want[i])
		}
	}
}

func TestDispatcher_Closed(t *testing.T) {
	d := NewDispatcher(lock.NewDevice(), Config{})
	d.Start(context.Background())
	d.Close()
	d.Close()

	if _, err := d.Submit(context.Background(), req(RemoveUser, `{}`)); !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("Submit() error = %v, want ErrDispatcherClosed", err)
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	dev := lock.NewDevice()
	d := NewDispatcher(dev, Config{})
	ctx := context.Background()

	for s := 0; s < 5; s++ {
		in := `{"userId": ` + string(rune('0'+s)) + `, "pin": "1"}`
		if _, err := d.Submit(ctx, req(AddUser, in)); err != nil {
			t.Fatal(err)
		}
	}
	d.Start(ctx)
	d.Close()

	if n := len(dev.Users()); n != 5 {
		t.Errorf("users = %d after Close, want 5", n)
	}
}

func TestDispatcher_PerformContextDone(t *testing.T) {
	p := newGatedPerformer()
	d := newTestDispatcher(t, p, Config{})
	defer close(p.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Perform(ctx, req(AddUser, `{"userId": 1, "pin": "1"}`))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Perform() error = %v, want DeadlineExceeded", err)
	}
}

func TestDispatcher_Validate(t *testing.T) {
	d := NewDispatcher(lock.NewDevice(), Config{})
	if err := d.Validate(req(SetPinCode, `{"userId": 2, "pin": "42"}`)); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := d.Validate(req(SetPinCode, `{"userId": 2}`)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate() error = %v", err)
	}
	if len(d.List()) != 0 {
		t.Error("Validate recorded an action")
	}
}
