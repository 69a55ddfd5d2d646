package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/magnus-flipper/magnus/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Ping(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Fatalf("expected db.Error{Op: PING}, got %v", err)
	}
}

func TestClientOption_RequiresAddrs(t *testing.T) {
	if _, err := clientOption(Config{}); err == nil {
		t.Fatal("expected error for missing addrs")
	}
}

func TestClientOption_URL(t *testing.T) {
	opt, err := clientOption(Config{URL: "redis://:secret@localhost:6380/2", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opt.InitAddress) != 1 || opt.InitAddress[0] != "localhost:6380" {
		t.Errorf("InitAddress = %v", opt.InitAddress)
	}
	if opt.Password != "secret" || opt.SelectDB != 2 {
		t.Errorf("password=%q db=%d", opt.Password, opt.SelectDB)
	}
	if !opt.DisableCache || !opt.DisableRetry {
		t.Error("cache and retry must be disabled")
	}
	if opt.ConnWriteTimeout != 2*time.Second || opt.Dialer.Timeout != 2*time.Second {
		t.Errorf("timeouts not applied: write=%v dial=%v", opt.ConnWriteTimeout, opt.Dialer.Timeout)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.Result(mock.RedisString("42")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "42" {
		t.Errorf("Get = %q", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestIncrByExpireNX_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			want := [][]string{
				{"MULTI"},
				{"INCRBY", "magnus:budget:alerts:orgA:1", "20"},
				{"EXPIRE", "magnus:budget:alerts:orgA:1", "90", "NX"},
				{"EXEC"},
			}
			if len(cmds) != len(want) {
				t.Fatalf("expected %d commands, got %d", len(want), len(cmds))
			}
			for i, cmd := range cmds {
				got := cmd.Commands()
				if len(got) != len(want[i]) {
					t.Fatalf("cmd %d: got %v, want %v", i, got, want[i])
				}
				for j := range got {
					if got[j] != want[i][j] {
						t.Fatalf("cmd %d: got %v, want %v", i, got, want[i])
					}
				}
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisString("OK")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisString("QUEUED")),
				mock.Result(mock.RedisArray(mock.RedisInt64(20), mock.RedisInt64(1))),
			}
		})

	s := NewStoreForTest(c)
	used, err := s.IncrByExpireNX(context.Background(), "magnus:budget:alerts:orgA:1", 20, 90*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 20 {
		t.Errorf("used = %d, want 20", used)
	}
}

func TestIncrByExpireNX_ExistingExpiryKept(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	// EXPIRE NX replies 0 when the key already carries a TTL.
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisArray(mock.RedisInt64(65), mock.RedisInt64(0))),
		})

	s := NewStoreForTest(c)
	used, err := s.IncrByExpireNX(context.Background(), "k", 5, 90*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != 65 {
		t.Errorf("used = %d, want 65", used)
	}
}

func TestIncrByExpireNX_ConnectionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.ErrorResult(context.DeadlineExceeded),
			mock.ErrorResult(context.DeadlineExceeded),
			mock.ErrorResult(context.DeadlineExceeded),
			mock.ErrorResult(context.DeadlineExceeded),
		})

	s := NewStoreForTest(c)
	_, err := s.IncrByExpireNX(context.Background(), "k", 1, 90*time.Second)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected *db.Error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped DeadlineExceeded, got %v", err)
	}
}

func TestIncrByExpireNX_AbortedExec(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisString("QUEUED")),
			mock.Result(mock.RedisNil()),
		})

	s := NewStoreForTest(c)
	if _, err := s.IncrByExpireNX(context.Background(), "k", 1, 90*time.Second); err == nil {
		t.Fatal("expected error for aborted transaction")
	}
}
