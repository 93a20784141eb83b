package blobstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pm-go/internal/pm"
)

func TestMemoryBlobStore_WriteAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStore()

	tests := []struct {
		name    string
		path    string
		content string
	}{
		{name: "store and retrieve", path: "data/users.json", content: `[{"id":"1"}]`},
		{name: "store empty content", path: "data/empty.bin", content: ""},
		{name: "store large content", path: "data/large.bin", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Write(ctx, tt.path, []byte(tt.content)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			got, err := store.Read(ctx, tt.path)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if string(got) != tt.content {
				t.Errorf("Read() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryBlobStore_ReadNotFound(t *testing.T) {
	store := NewMemoryBlobStore()

	_, err := store.Read(context.Background(), "data/missing.bin")
	if !errors.Is(err, pm.ErrBlobNotFound) {
		t.Errorf("Read() error = %v, want ErrBlobNotFound", err)
	}
}

func TestMemoryBlobStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStore()

	data := []byte("abc")
	if err := store.Write(ctx, "k", data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data[0] = 'z'

	got, err := store.Read(ctx, "k")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	got[1] = 'z'

	again, _ := store.Read(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored blob = %q, want %q", again, "abc")
	}
}

func TestMemoryBlobStore_ExistsAndDirectories(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStore()

	if ok, _ := store.Exists(ctx, "state"); ok {
		t.Error("Exists(state) = true before CreateDirectory")
	}
	if err := store.CreateDirectory(ctx, "state"); err != nil {
		t.Fatalf("CreateDirectory() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, "state"); !ok {
		t.Error("Exists(state) = false after CreateDirectory")
	}

	if err := store.Write(ctx, "data/users.json", []byte("[]")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, "data"); !ok {
		t.Error("Exists(data) = false after writing a blob below it")
	}
}

func TestMemoryBlobStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStore()

	if err := store.Write(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, "k"); ok {
		t.Error("Exists() = true after Delete")
	}
	if len(store.Paths()) != 0 {
		t.Errorf("Paths() = %v, want empty", store.Paths())
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "data/users.json", want: "data/users.json"},
		{path: "data/./users.json", want: "data/users.json"},
		{path: "data/../state/x", want: "state/x"},
		{path: "", wantErr: true},
		{path: ".", wantErr: true},
		{path: "../escape", wantErr: true},
		{path: "/etc/passwd", wantErr: true},
		{path: `data\users.json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := cleanPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cleanPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("cleanPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
