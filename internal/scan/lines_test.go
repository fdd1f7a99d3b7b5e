package scan

import "testing"

func TestLineIndex_Position(t *testing.T) {
	src := "ab\r\ncd\nxé[y\rz"
	x := NewLineIndex(src)
	if x.LineCount() != 4 {
		t.Fatalf("LineCount = %d, want 4", x.LineCount())
	}
	cases := []struct {
		offset     int
		line, char int
	}{
		{0, 0, 0},
		{1, 0, 1},
		{4, 1, 0},
		{8, 2, 1},
		{10, 2, 2}, // after the two-byte é
		{13, 3, 0},
	}
	for _, c := range cases {
		line, char := x.Position(c.offset)
		if line != c.line || char != c.char {
			t.Errorf("Position(%d) = %d:%d, want %d:%d", c.offset, line, char, c.line, c.char)
		}
	}
}

func TestLineIndex_LineText(t *testing.T) {
	x := NewLineIndex("one\r\ntwo\n\nfour")
	want := []string{"one", "two", "", "four"}
	for i, w := range want {
		if got := x.LineText(i); got != w {
			t.Errorf("LineText(%d) = %q, want %q", i, got, w)
		}
	}
}

func TestFences(t *testing.T) {
	lines := []string{
		"text",
		"```math",
		"[a](node:a)",
		"``",
		"```",
		"after",
		"~~~~ pre",
		"~~~",
		"still",
		"~~~~",
		"    ```",
		"out",
	}
	want := []bool{false, true, true, true, true, false, true, true, true, true, false, false}
	var f Fences
	for i, l := range lines {
		if got := f.Next(l); got != want[i] {
			t.Errorf("line %d %q: in fence = %v, want %v", i, l, got, want[i])
		}
	}
}

func TestFences_Info(t *testing.T) {
	var f Fences
	f.Next("```image  ")
	if !f.Open() || f.Info() != "image" {
		t.Errorf("open = %v, info = %q", f.Open(), f.Info())
	}
}
