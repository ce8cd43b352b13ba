package utils_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/dataqual-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900}, // heuristic ~ 1 tok ≈ 4 chars
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestTokenBreakdown(t *testing.T) {
	got := utils.TokenBreakdown(map[string]string{"system": "abcdefgh", "user": ""})
	if got["system"] != 2 || got["user"] != 0 {
		t.Fatalf("unexpected breakdown: %v", got)
	}
}

func TestWriteOutputCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.md")
	if err := utils.WriteOutput(io.Discard, path, []byte("ok")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "ok" {
		t.Fatalf("read back %q, %v", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}

	var buf bytes.Buffer
	if err := utils.WriteOutput(&buf, "-", []byte("stdout")); err != nil || buf.String() != "stdout" {
		t.Fatalf("stdout write: %q, %v", buf.String(), err)
	}
}
