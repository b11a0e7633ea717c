package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kirill3224/privacy-sentry/internal/gateway"
)

func TestEventsForOneUserStayOrdered(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int64][]string)

	d := New(func(_ context.Context, u gateway.Update) {
		mu.Lock()
		seen[u.UserID] = append(seen[u.UserID], u.Text)
		mu.Unlock()
	})

	src := make(chan gateway.Update)
	done := make(chan struct{})
	go func() {
		d.Run(context.Background(), src)
		close(done)
	}()

	const perUser = 20
	for i := 0; i < perUser; i++ {
		for _, userID := range []int64{1, 2, 3} {
			src <- gateway.Update{Kind: gateway.EventText, UserID: userID, Text: fmt.Sprintf("msg-%d", i)}
		}
	}
	close(src)
	<-done

	for _, userID := range []int64{1, 2, 3} {
		got := seen[userID]
		if len(got) != perUser {
			t.Fatalf("user %d handled %d events, want %d", userID, len(got), perUser)
		}
		for i, text := range got {
			if want := fmt.Sprintf("msg-%d", i); text != want {
				t.Fatalf("user %d event %d = %q, want %q", userID, i, text, want)
			}
		}
	}
}

func TestRunDrainsBacklogOnClose(t *testing.T) {
	handled := make(chan string, 64)
	d := New(func(_ context.Context, u gateway.Update) {
		time.Sleep(time.Millisecond)
		handled <- u.Text
	})

	src := make(chan gateway.Update, 8)
	for i := 0; i < 8; i++ {
		src <- gateway.Update{UserID: 1, Text: fmt.Sprintf("m%d", i)}
	}
	close(src)

	d.Run(context.Background(), src)

	if len(handled) != 8 {
		t.Fatalf("drained %d events, want 8", len(handled))
	}
}

func TestRunAssignsTurnIDs(t *testing.T) {
	got := make(chan string, 1)
	d := New(func(_ context.Context, u gateway.Update) {
		got <- u.TurnID
	})

	src := make(chan gateway.Update, 1)
	src <- gateway.Update{UserID: 1, Text: "hi"}
	close(src)
	d.Run(context.Background(), src)

	if id := <-got; id == "" {
		t.Fatalf("turn id should be assigned")
	}
}

func TestHandlerPanicDoesNotKillWorker(t *testing.T) {
	var mu sync.Mutex
	var handled []string

	d := New(func(_ context.Context, u gateway.Update) {
		if u.Text == "boom" {
			panic("boom")
		}
		mu.Lock()
		handled = append(handled, u.Text)
		mu.Unlock()
	})

	src := make(chan gateway.Update, 2)
	src <- gateway.Update{UserID: 1, Text: "boom"}
	src <- gateway.Update{UserID: 1, Text: "after"}
	close(src)
	d.Run(context.Background(), src)

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != "after" {
		t.Fatalf("handled = %v, want the event after the panic", handled)
	}
}
