package cache

import (
	"testing"

	"github.com/any-hub/user-cache/internal/user"
)

func TestShardCountRoundsUpToPowerOfTwo(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 2: 2, 3: 4, 16: 16, 17: 32, 1000: 1024}
	for in, want := range cases {
		if got := shardCount(in); got != want {
			t.Fatalf("shardCount(%d)=%d, want %d", in, got, want)
		}
	}
}

func TestShardPutIfAbsentKeepsFirstValue(t *testing.T) {
	sh := newShard()

	stored, inserted := sh.putIfAbsent(user.User{ID: "a", Age: 1})
	if !inserted || stored.Age != 1 {
		t.Fatalf("first insert should win: %+v inserted=%v", stored, inserted)
	}

	stored, inserted = sh.putIfAbsent(user.User{ID: "a", Age: 2})
	if inserted || stored.Age != 1 {
		t.Fatalf("second insert must return resident value: %+v inserted=%v", stored, inserted)
	}
	if sh.len() != 1 {
		t.Fatalf("expected one entry, got %d", sh.len())
	}
}

func TestShardGetReturnsCopy(t *testing.T) {
	sh := newShard()
	sh.putIfAbsent(user.User{ID: "a", Age: 1})

	got, ok := sh.get("a")
	if !ok {
		t.Fatalf("expected resident entry")
	}
	got.Age = 7

	again, _ := sh.get("a")
	if again.Age != 1 {
		t.Fatalf("mutation of returned value leaked: %+v", again)
	}
}

func TestHashKeyIsStable(t *testing.T) {
	if hashKey("user-1") != hashKey("user-1") {
		t.Fatalf("hash must be deterministic")
	}
	if hashKey("user-1") == hashKey("user-2") {
		t.Fatalf("distinct keys unexpectedly collided")
	}
}
