package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("driver: %s", s.Driver())
	}
	md := map[string]string{"owner": "lab"}
	info, err := s.Put(ctx, "snap/a.json", strings.NewReader("[1]"), core.PutOptions{ContentType: "application/json", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["owner"] = "changed"
	if info.Size != 3 || info.Metadata["owner"] != "lab" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "snap/a.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	_, rc, err := s.Get(ctx, "snap/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "[1]" {
		t.Fatalf("unexpected body %q", b)
	}
	if _, err := s.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, _ = s.Put(ctx, "snap/b.json", strings.NewReader("[]"), core.PutOptions{})
	_, _ = s.Put(ctx, "other", strings.NewReader(""), core.PutOptions{})
	list, _ := s.List(ctx, "snap/")
	if len(list) != 2 || list[0].Key != "snap/a.json" || list[1].Key != "snap/b.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	if ok, _ := s.Delete(ctx, "snap/a.json"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := s.Delete(ctx, "snap/a.json"); ok {
		t.Fatalf("expected second delete to report missing blob")
	}
}
