package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCachedModelReusesReplyForSamePrompt(t *testing.T) {
	calls := 0
	model := NewCachedModel(ModelFunc(func(_ context.Context, prompt string) (string, error) {
		calls++
		return "reply:" + prompt, nil
	}), time.Minute)

	for i := 0; i < 3; i++ {
		reply, err := model.Generate(context.Background(), "a")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if reply != "reply:a" {
			t.Fatalf("Generate() = %q", reply)
		}
	}
	if _, err := model.Generate(context.Background(), "b"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestCachedModelDoesNotCacheErrors(t *testing.T) {
	calls := 0
	model := NewCachedModel(ModelFunc(func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("unavailable")
		}
		return "ok", nil
	}), time.Minute)

	if _, err := model.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected first call to fail")
	}
	reply, err := model.Generate(context.Background(), "p")
	if err != nil || reply != "ok" {
		t.Fatalf("Generate() = %q, %v", reply, err)
	}
}

func TestNewCachedModelDisabledWithoutTTL(t *testing.T) {
	inner := ModelFunc(func(context.Context, string) (string, error) { return "", nil })
	if _, ok := NewCachedModel(inner, 0).(ModelFunc); !ok {
		t.Fatal("expected the inner model when ttl is zero")
	}
}
