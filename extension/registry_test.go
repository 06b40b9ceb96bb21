package extension

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/hyperion-engine/hyperion/version"
)

var testEngine = version.New(0, 1, 0)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(&MetaInfo{
		Ext: []Descriptor{
			{UUID: LogUUID, Name: LogName},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	r.Bind(LogUUID, NewLogExtension)
	return r
}

func TestRegistryResolveByName(t *testing.T) {
	r := testRegistry(t)
	desc, err := r.Resolve(LogName)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if desc.UUID != LogUUID {
		t.Errorf("uuid = %s, want %s", desc.UUID, LogUUID)
	}
}

func TestRegistryResolveByUUID(t *testing.T) {
	r := testRegistry(t)
	desc, err := r.Resolve(LogUUID.String())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if desc.Name != LogName {
		t.Errorf("name = %q, want %q", desc.Name, LogName)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := testRegistry(t)
	for _, id := range []string{"no_such_extension", uuid.NewString()} {
		_, err := r.Resolve(id)
		if err == nil {
			t.Errorf("Resolve(%q): expected error, got nil", id)
			continue
		}
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("Resolve(%q): error = %v, want *NotFoundError", id, err)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	other := uuid.New()
	tests := []struct {
		name string
		meta *MetaInfo
	}{
		{"duplicate uuid", &MetaInfo{Ext: []Descriptor{
			{UUID: LogUUID, Name: "a"},
			{UUID: LogUUID, Name: "b"},
		}}},
		{"duplicate name", &MetaInfo{Ext: []Descriptor{
			{UUID: LogUUID, Name: "same"},
			{UUID: other, Name: "same"},
		}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRegistry(tc.meta); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRegistryInstantiate(t *testing.T) {
	r := testRegistry(t)
	desc, _ := r.Resolve(LogName)

	ext, err := r.Instantiate(desc, testEngine)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if ext.UUID() != LogUUID {
		t.Errorf("uuid = %s, want %s", ext.UUID(), LogUUID)
	}
}

func TestRegistryInstantiateUnbound(t *testing.T) {
	r, err := NewRegistry(&MetaInfo{
		Ext: []Descriptor{{UUID: uuid.New(), Name: "phantom"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	desc, _ := r.Resolve("phantom")
	if _, err := r.Instantiate(desc, testEngine); err == nil {
		t.Error("expected error for unbound capability")
	}
}

func TestRegistryInstantiateVerifiesPath(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "logger.so")
	if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvExtPath, dir)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"no configured path", "", false},
		{"existing absolute path", full, false},
		{"relative path on search path", "logger.so", false},
		{"missing path", filepath.Join(dir, "absent.so"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewRegistry(&MetaInfo{
				Ext: []Descriptor{{UUID: LogUUID, Path: tc.path, Name: LogName}},
			})
			if err != nil {
				t.Fatalf("NewRegistry failed: %v", err)
			}
			r.Bind(LogUUID, NewLogExtension)

			desc, _ := r.Resolve(LogName)
			_, err = r.Instantiate(desc, testEngine)
			if tc.wantErr && err == nil {
				t.Error("expected error for unresolvable path")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Instantiate failed: %v", err)
			}
		})
	}
}

func TestRegistryInstantiateNameMismatch(t *testing.T) {
	// The record declares a different name than the capability reports.
	r, err := NewRegistry(&MetaInfo{
		Ext: []Descriptor{{UUID: LogUUID, Name: "misnamed_logger"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	r.Bind(LogUUID, NewLogExtension)

	desc, _ := r.Resolve("misnamed_logger")
	if _, err := r.Instantiate(desc, testEngine); err == nil {
		t.Error("expected error for self-report mismatch")
	}
}

func TestRegistryInstantiateIncompatibleEngine(t *testing.T) {
	r := testRegistry(t)
	desc, _ := r.Resolve(LogName)

	if _, err := r.Instantiate(desc, version.New(0, 0, 1)); err == nil {
		t.Error("expected error for unsupported engine version")
	}
}
