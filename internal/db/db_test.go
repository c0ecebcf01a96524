package db

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"pdf-chat/internal/config"
	"pdf-chat/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), &config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func text(session string, sender models.Sender, content string) models.Message {
	return models.Message{SessionID: session, Sender: sender, Kind: models.KindText, Text: content}
}

func TestSaveAndLoadPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	in := []models.Message{
		text("s1", models.SenderUser, "hello"),
		{SessionID: "s1", Sender: models.SenderUser, Kind: models.KindBinary, Blob: []byte{0x89, 'P', 'N', 'G'}},
		text("s1", models.SenderAssistant, "hi there"),
	}
	var lastID int64
	for _, m := range in {
		id, err := s.SaveMessage(ctx, m)
		if err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
		if id <= lastID {
			t.Fatalf("ids not increasing: %d after %d", id, lastID)
		}
		lastID = id
	}

	out, err := s.LoadMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d messages, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i].Sender != in[i].Sender || out[i].Kind != in[i].Kind || out[i].Text != in[i].Text || !bytes.Equal(out[i].Blob, in[i].Blob) {
			t.Fatalf("message %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestSaveMessageRequiresSession(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveMessage(context.Background(), text("", models.SenderUser, "x")); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestLoadLastKTextMessages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, c := range []string{"1", "2", "3", "4", "5"} {
		if _, err := s.SaveMessage(ctx, text("s", models.SenderUser, c)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.SaveMessage(ctx, models.Message{SessionID: "s", Sender: models.SenderUser, Kind: models.KindBinary, Blob: []byte("img")}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		k    int
		want []string
	}{
		{0, nil},
		{2, []string{"4", "5"}},
		{3, []string{"3", "4", "5"}},
		{10, []string{"1", "2", "3", "4", "5"}},
	}
	for _, tt := range tests {
		got, err := s.LoadLastKTextMessages(ctx, "s", tt.k)
		if err != nil {
			t.Fatalf("k=%d: %v", tt.k, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("k=%d: expected %d messages, got %d", tt.k, len(tt.want), len(got))
		}
		for i := range got {
			if got[i].Text != tt.want[i] {
				t.Fatalf("k=%d: position %d got %q, want %q", tt.k, i, got[i].Text, tt.want[i])
			}
		}
	}
}

func TestDeleteHistoryLeavesOtherSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, m := range []models.Message{
		text("a", models.SenderUser, "a1"),
		text("b", models.SenderUser, "b1"),
		text("a", models.SenderAssistant, "a2"),
	} {
		if _, err := s.SaveMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteHistory(ctx, "a"); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	a, _ := s.LoadMessages(ctx, "a")
	b, _ := s.LoadMessages(ctx, "b")
	if len(a) != 0 || len(b) != 1 {
		t.Fatalf("expected a empty and b intact, got %d and %d", len(a), len(b))
	}
}

func TestListSessionIDsSortedAndDistinct(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ids, err := s.ListSessionIDs(ctx)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected no sessions, got %v, %v", ids, err)
	}

	for _, id := range []string{"2024-05-02 10:00:00", "2024-05-01 09:00:00", "2024-05-02 10:00:00"} {
		if _, err := s.SaveMessage(ctx, text(id, models.SenderUser, "x")); err != nil {
			t.Fatal(err)
		}
	}
	ids, err = s.ListSessionIDs(ctx)
	if err != nil {
		t.Fatalf("ListSessionIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "2024-05-01 09:00:00" || ids[1] != "2024-05-02 10:00:00" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	v, err := s.GetSetting(ctx, "backend", "gemini")
	if err != nil || v != "gemini" {
		t.Fatalf("expected default, got %q, %v", v, err)
	}
	// the default is stored on a miss
	v, _ = s.GetSetting(ctx, "backend", "other")
	if v != "gemini" {
		t.Fatalf("expected stored default, got %q", v)
	}

	if err := s.UpdateSetting(ctx, "backend", "openai"); err != nil {
		t.Fatalf("UpdateSetting: %v", err)
	}
	v, _ = s.GetSetting(ctx, "backend", "gemini")
	if v != "openai" {
		t.Fatalf("expected updated value, got %q", v)
	}
}

func TestSequenceHandsOutConsecutiveRanges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seq := s.Sequence("vector_seq")

	first, err := seq.Reserve(ctx, 3)
	if err != nil || first != 1 {
		t.Fatalf("expected 1, got %d, %v", first, err)
	}
	next, err := seq.Reserve(ctx, 2)
	if err != nil || next != 4 {
		t.Fatalf("expected 4, got %d, %v", next, err)
	}
	// a second handle on the same name continues the counter
	again, _ := s.Sequence("vector_seq").Reserve(ctx, 1)
	if again != 6 {
		t.Fatalf("expected 6, got %d", again)
	}
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.SaveMessage(ctx, text("c", models.SenderUser, "x")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	msgs, err := s.LoadMessages(ctx, "c")
	if err != nil || len(msgs) != 20 {
		t.Fatalf("expected 20 messages, got %d, %v", len(msgs), err)
	}
}

func TestConnectDBUnknownDriver(t *testing.T) {
	if _, err := ConnectDB(&config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected error")
	}
}
