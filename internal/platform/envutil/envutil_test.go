package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "42")
	t.Setenv("ENVUTIL_BAD_INT", "x")
	t.Setenv("ENVUTIL_FLOAT", "4.5")
	t.Setenv("ENVUTIL_BOOL", "off")
	t.Setenv("ENVUTIL_SECS", "-3")
	t.Setenv("ENVUTIL_LIST", " a, ,b ")

	if got := Int("ENVUTIL_INT", 1); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: want=7 got=%d", got)
	}
	if got := Float("ENVUTIL_FLOAT", 0); got != 4.5 {
		t.Fatalf("Float: want=4.5 got=%v", got)
	}
	if got := Bool("ENVUTIL_BOOL", true); got {
		t.Fatalf("Bool: want=false got=%v", got)
	}
	if got := Bool("ENVUTIL_UNSET", true); !got {
		t.Fatalf("Bool default: want=true got=%v", got)
	}
	if got := Seconds("ENVUTIL_SECS", time.Minute); got != 0 {
		t.Fatalf("Seconds clamp: want=0 got=%v", got)
	}
	if got := List("ENVUTIL_LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: want=[a b] got=%v", got)
	}
	if got := String("ENVUTIL_UNSET", "def"); got != "def" {
		t.Fatalf("String default: want=def got=%q", got)
	}
}
