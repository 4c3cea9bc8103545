package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-simlock/migrations"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func finishedAction(id, name string, status action.Status, input string, requested time.Time) action.Action {
	done := requested.Add(time.Millisecond)
	return action.Action{
		ID:            id,
		Name:          name,
		Input:         json.RawMessage(input),
		Source:        "http",
		Status:        status,
		TimeRequested: requested,
		TimeCompleted: &done,
	}
}

func TestCreateAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := FromAction(finishedAction("a1", action.AddUser, action.StatusCompleted,
		`{"userId":3,"pin":"1234","userName":"Bob"}`, base))
	second := FromAction(finishedAction("a2", action.RemoveUser, action.StatusCompleted,
		`{"userId":3}`, base.Add(time.Second)))

	for _, e := range []*Entry{&first, &second} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if !strings.HasPrefix(first.ID, "aud-") || len(first.ID) != len("aud-")+8 {
		t.Errorf("generated ID = %q", first.ID)
	}
	if first.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("Total=%d len=%d, want 2", result.Total, len(result.Entries))
	}
	if result.Limit != defaultLimit {
		t.Errorf("Limit = %d, want %d", result.Limit, defaultLimit)
	}

	// Newest first.
	if result.Entries[0].ActionID != "a2" || result.Entries[1].ActionID != "a1" {
		t.Errorf("order = %s, %s", result.Entries[0].ActionID, result.Entries[1].ActionID)
	}

	got := result.Entries[1]
	if strings.Contains(string(got.Input), "1234") {
		t.Errorf("PIN stored: %s", got.Input)
	}
	if !strings.Contains(string(got.Input), `"userName":"Bob"`) {
		t.Errorf("input lost fields: %s", got.Input)
	}
	if !got.TimeRequested.Equal(base) {
		t.Errorf("TimeRequested = %v, want %v", got.TimeRequested, base)
	}
	if got.TimeCompleted == nil || !got.TimeCompleted.Equal(base.Add(time.Millisecond)) {
		t.Errorf("TimeCompleted = %v", got.TimeCompleted)
	}
	if got.Source != "http" || got.Status != "completed" {
		t.Errorf("entry = %+v", got)
	}
}

func TestList_Filters(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []action.Action{
		finishedAction("a1", action.AddUser, action.StatusCompleted, `{"userId":1,"pin":"1"}`, base),
		finishedAction("a2", action.AddUser, action.StatusFailed, `{"userId":2,"pin":"2"}`, base.Add(time.Second)),
		finishedAction("a3", action.SetPinCode, action.StatusCompleted, `{"userId":1,"pin":"3"}`, base.Add(2*time.Second)),
		finishedAction("a4", action.RemoveUser, action.StatusCancelled, `{}`, base.Add(3*time.Second)),
	}
	for _, a := range seed {
		e := FromAction(a)
		if err := repo.Create(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
		total   int
	}{
		{"by action", Filter{Action: action.AddUser}, []string{"a2", "a1"}, 2},
		{"by status", Filter{Status: "completed"}, []string{"a3", "a1"}, 2},
		{"action and status", Filter{Action: action.AddUser, Status: "failed"}, []string{"a2"}, 1},
		{"page", Filter{Limit: 2, Offset: 1}, []string{"a3", "a2"}, 4},
		{"negative offset", Filter{Limit: 1, Offset: -5}, []string{"a4"}, 4},
		{"no match", Filter{Action: "lock"}, []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.total {
				t.Errorf("Total = %d, want %d", result.Total, tt.total)
			}
			ids := make([]string, 0, len(result.Entries))
			for _, e := range result.Entries {
				ids = append(ids, e.ActionID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := openTestRepo(t)

	result, err := repo.List(context.Background(), Filter{Limit: 10000})
	if err != nil {
		t.Fatal(err)
	}
	if result.Limit != maxLimit {
		t.Errorf("Limit = %d, want %d", result.Limit, maxLimit)
	}
	if result.Entries == nil {
		t.Error("Entries should be empty, not nil")
	}
}

func TestCreate_RedactsHandBuiltEntry(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	e := Entry{
		ActionID:      "x",
		Action:        action.SetPinCode,
		Status:        "completed",
		Input:         json.RawMessage(`{"userId":4,"pin":"8888"}`),
		TimeRequested: time.Now(),
	}
	if err := repo.Create(ctx, &e); err != nil {
		t.Fatal(err)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(result.Entries[0].Input), "8888") {
		t.Errorf("PIN stored: %s", result.Entries[0].Input)
	}
	if result.Entries[0].TimeCompleted != nil {
		t.Error("TimeCompleted should be nil")
	}
}

func TestRedactInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"pin replaced", `{"userId":3,"pin":"1234"}`, `{"pin":"[REDACTED]","userId":3}`},
		{"upper case key", `{"userId":3,"PIN":"4321"}`, `{"PIN":"[REDACTED]","userId":3}`},
		{"mixed case key", `{"Pin":"1"}`, `{"Pin":"[REDACTED]"}`},
		{"every spelling", `{"pin":"1","pIN":"2"}`, `{"pIN":"[REDACTED]","pin":"[REDACTED]"}`},
		{"no pin", `{"userId":3}`, `{"userId":3}`},
		{"pin-like key kept", `{"pinned":true}`, `{"pinned":true}`},
		{"empty", ``, `{}`},
		{"null", `null`, `{}`},
		{"array", `[1,2]`, `{}`},
		{"garbage", `{"pin":`, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(RedactInput(json.RawMessage(tt.in))); got != tt.want {
				t.Errorf("RedactInput(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

// encoding/json binds "PIN" to AddUserInput.PIN, so the stored copy must
// not keep it either.
func TestCreate_RedactsCaseInsensitivePIN(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	inputs := map[string]string{
		"upper": `{"userId":3,"PIN":"4321"}`,
		"mixed": `{"userId":3,"Pin":"4321","userName":"Bob"}`,
	}
	for id, in := range inputs {
		e := FromAction(finishedAction(id, action.AddUser, action.StatusCompleted, in, time.Now()))
		if err := repo.Create(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	for _, e := range result.Entries {
		if strings.Contains(string(e.Input), "4321") {
			t.Errorf("PIN stored: %s", e.Input)
		}
		if !strings.Contains(string(e.Input), Redacted) {
			t.Errorf("input %s not redacted", e.Input)
		}
	}
}
