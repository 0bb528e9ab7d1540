package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ganttcal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(DriverSQLite, dbPath)
	if err != nil {
		t.Fatalf("New(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	if _, err := New("mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := New(DriverSQLite, ""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := model.Entity{
		Kind:      model.KindProject,
		Name:      "Website Redesign",
		Priority:  model.PriorityHigh,
		StartDate: model.Time(day(2025, time.January, 10)),
		Deadline:  model.Time(day(2025, time.January, 20)),
		Budget:    model.Float(1500.5),
		Progress:  model.Float(30),
	}
	if err := s.CreateEntity(ctx, &e); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if e.ID == "" {
		t.Fatal("CreateEntity should assign an id")
	}
	if e.Status != model.StatusPlanning {
		t.Fatalf("default project status: got %q, want planning", e.Status)
	}

	got, err := s.GetEntity(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.Name != e.Name || got.Kind != model.KindProject || got.Priority != model.PriorityHigh {
		t.Fatalf("got %+v, want %+v", got, e)
	}
	if got.StartDate == nil || !got.StartDate.Equal(*e.StartDate) {
		t.Fatalf("start date: got %v, want %v", got.StartDate, e.StartDate)
	}
	if got.Budget == nil || *got.Budget != 1500.5 {
		t.Fatalf("budget: got %v, want 1500.5", got.Budget)
	}
	if got.Spent != nil {
		t.Fatalf("spent: got %v, want nil", *got.Spent)
	}
}

func TestCreate_RequiresName(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateEntity(context.Background(), &model.Entity{}); err == nil {
		t.Fatal("expected error for nameless entity")
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetEntity(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListEntities_FilterByKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, e := range []model.Entity{
		{ID: "p1", Kind: model.KindProject, Name: "P"},
		{ID: "t1", Kind: model.KindTask, Name: "T1", ProjectID: "p1"},
		{ID: "t2", Kind: model.KindTask, Name: "T2", ProjectID: "p1"},
		{ID: "s1", Kind: model.KindSprint, Name: "S"},
	} {
		e := e
		if err := s.CreateEntity(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("all: got %d, want 4", len(all))
	}

	tasks, err := s.ListEntities(ctx, model.KindTask, model.KindSprint)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Fatalf("tasks+sprints: got %d, want 3", len(tasks))
	}
}

func TestUpdateSchedule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := model.Entity{ID: "t1", Name: "Task"}
	if err := s.CreateEntity(ctx, &e); err != nil {
		t.Fatal(err)
	}

	u := model.ScheduleUpdate{
		ID:        "t1",
		StartDate: time.Date(2025, time.January, 16, 12, 0, 0, 0, time.UTC),
		Deadline:  time.Date(2025, time.January, 26, 12, 0, 0, 0, time.UTC),
	}
	if err := s.UpdateSchedule(ctx, u); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	got, err := s.GetEntity(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.StartDate.Equal(u.StartDate) || !got.Deadline.Equal(u.Deadline) {
		t.Fatalf("dates: got %v..%v, want %v..%v", got.StartDate, got.Deadline, u.StartDate, u.Deadline)
	}

	u.ID = "missing"
	if err := s.UpdateSchedule(ctx, u); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := model.Entity{ID: "t1", Name: "Task"}
	if err := s.CreateEntity(ctx, &e); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, "t1", model.StatusDone); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ := s.GetEntity(ctx, "t1")
	if got.Status != model.StatusDone {
		t.Fatalf("status: got %q, want done", got.Status)
	}
	if err := s.UpdateStatus(ctx, "t1", ""); err == nil {
		t.Fatal("expected error for empty status")
	}
}

func TestDeleteEntity_DetachesTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := model.Entity{ID: "p1", Kind: model.KindProject, Name: "P"}
	tk := model.Entity{ID: "t1", Name: "T", ProjectID: "p1"}
	if err := s.CreateEntity(ctx, &p); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateEntity(ctx, &tk); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteEntity(ctx, "p1"); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	if _, err := s.GetEntity(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted project still present: %v", err)
	}
	got, err := s.GetEntity(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ProjectID != "" {
		t.Fatalf("task project id: got %q, want empty", got.ProjectID)
	}
	if err := s.DeleteEntity(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestDeleteEntity_RollsBackWhenDetachFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := model.Entity{ID: "p1", Kind: model.KindProject, Name: "P"}
	tk := model.Entity{ID: "t1", Name: "T", ProjectID: "p1"}
	if err := s.CreateEntity(ctx, &p); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateEntity(ctx, &tk); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec(`CREATE TRIGGER refuse_detach BEFORE UPDATE OF project_id ON entities
		BEGIN SELECT RAISE(ABORT, 'detach refused'); END`); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteEntity(ctx, "p1"); err == nil {
		t.Fatal("expected delete to fail")
	}
	if _, err := s.GetEntity(ctx, "p1"); err != nil {
		t.Fatalf("project should survive a failed delete: %v", err)
	}
	got, err := s.GetEntity(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ProjectID != "p1" {
		t.Fatalf("task project id: got %q, want p1", got.ProjectID)
	}
}

func TestListEntities_CreationOrderAcrossFractionalSeconds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// .1s then .15s: as RFC3339Nano text ".15Z" sorts before ".1Z".
	base := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	stamps := []time.Time{base.Add(100 * time.Millisecond), base.Add(150 * time.Millisecond)}
	next := 0
	s.now = func() time.Time {
		ts := stamps[next]
		next++
		return ts
	}

	// Ids sort opposite to creation so the id tie-break cannot mask the order.
	for _, id := range []string{"z-first", "a-second"} {
		if err := s.CreateEntity(ctx, &model.Entity{ID: id, Name: id}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListEntities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "z-first" || got[1].ID != "a-second" {
		t.Fatalf("order: got %v", got)
	}
}

func TestFormatStamp_FixedWidth(t *testing.T) {
	a := formatStamp(time.Date(2025, time.January, 15, 12, 0, 0, 100_000_000, time.UTC))
	b := formatStamp(time.Date(2025, time.January, 15, 12, 0, 0, 150_000_000, time.FixedZone("X", 0)))
	if len(a) != len(b) || !(a < b) {
		t.Fatalf("stamps not ordered as text: %q, %q", a, b)
	}
	if a != "2025-01-15T12:00:00.100000000Z" {
		t.Fatalf("got %q", a)
	}
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := day(2025, time.January, 15)

	n, err := s.Seed(ctx, now)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n == 0 {
		t.Fatal("Seed inserted nothing into an empty store")
	}
	again, err := s.Seed(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Fatalf("second Seed inserted %d, want 0", again)
	}
	all, _ := s.ListEntities(ctx)
	if len(all) != n {
		t.Fatalf("listed %d entities, want %d", len(all), n)
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	if got := pg.rebind("UPDATE x SET a = ?, b = ? WHERE id = ?"); got != "UPDATE x SET a = $1, b = $2 WHERE id = $3" {
		t.Fatalf("postgres rebind: got %q", got)
	}
	lite := &Store{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind: got %q", got)
	}
}
