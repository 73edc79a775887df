package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

// mockStoreSpec implements ValidatingSpec for testing the stores
type mockStoreSpec struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func (s *mockStoreSpec) Validate() error {
	return nil
}

func TestNewFileStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewFileStore[*mockStoreSpec](tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "path", store.path, tmpDir)
}

func TestNewFileStore_NonExistentDirectory(t *testing.T) {
	_, err := NewFileStore[*mockStoreSpec]("/nonexistent/path/that/does/not/exist")
	if err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestNewFileStore_NotADirectory(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "file.txt")
	err := os.WriteFile(filePath, []byte("x"), 0644)
	if err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err = NewFileStore[*mockStoreSpec](filePath)
	testutil.AssertErrorContains(t, err, "not a directory")
}

func TestFileStore_Load(t *testing.T) {
	tmpDir := t.TempDir()

	asset := Asset[*mockStoreSpec]{
		Version:    1,
		Identifier: "existing",
		Spec:       &mockStoreSpec{Name: "Test", Value: 42},
	}
	data, err := json.Marshal(asset)
	if err != nil {
		t.Fatalf("failed to marshal test asset: %v", err)
	}
	err = os.WriteFile(filepath.Join(tmpDir, "existing.json"), data, 0644)
	if err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	err = os.WriteFile(filepath.Join(tmpDir, "bad.json"), []byte(`{invalid json`), 0644)
	if err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	err = os.WriteFile(filepath.Join(tmpDir, "renamed.json"), data, 0644)
	if err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	store, err := NewFileStore[*mockStoreSpec](tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	tests := map[string]struct {
		id          string
		expNotFound bool
		expErr      bool
		expName     string
		expValue    int
	}{
		"load existing record": {
			id:       "existing",
			expName:  "Test",
			expValue: 42,
		},
		"load non-existing record": {
			id:          "nonexistent",
			expNotFound: true,
			expErr:      true,
		},
		"load empty id": {
			id:     "",
			expErr: true,
		},
		"load invalid json": {
			id:     "bad",
			expErr: true,
		},
		"load mismatched id": {
			id:     "renamed",
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			result, err := store.Load(context.Background(), tt.id)

			if tt.expErr {
				if err == nil {
					t.Fatal("expected error")
				}
				testutil.AssertEqual(t, "not found", errors.Is(err, ErrNotFound), tt.expNotFound)
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "name", result.Name, tt.expName)
			testutil.AssertEqual(t, "value", result.Value, tt.expValue)
		})
	}
}

func TestFileStore_Save(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	spec := &mockStoreSpec{Name: "TestItem", Value: 100}

	err = store.Save(context.Background(), "test-id", spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify file was written
	filePath := filepath.Join(tmpDir, "test-id.json")
	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}

	var asset Asset[*mockStoreSpec]
	err = json.Unmarshal(data, &asset)
	if err != nil {
		t.Fatalf("failed to unmarshal saved data: %v", err)
	}

	testutil.AssertEqual(t, "asset version", asset.Version, uint(1))
	testutil.AssertEqual(t, "asset id", asset.Identifier, Identifier("test-id"))
	testutil.AssertEqual(t, "spec name", asset.Spec.Name, "TestItem")
	testutil.AssertEqual(t, "spec value", asset.Spec.Value, 100)

	// No temp file left behind
	_, err = os.Stat(filePath + ".tmp")
	testutil.AssertEqual(t, "temp removed", errors.Is(err, os.ErrNotExist), true)
}

func TestFileStore_Save_InvalidId(t *testing.T) {
	store, err := NewFileStore[*mockStoreSpec](t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	err = store.Save(context.Background(), "../escape", &mockStoreSpec{})
	testutil.AssertErrorContains(t, err, "alphanumeric")
}

func TestFileStore_Save_OverwritesExisting(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	// Save initial
	err = store.Save(ctx, "test-id", &mockStoreSpec{Name: "Initial", Value: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Save updated
	err = store.Save(ctx, "test-id", &mockStoreSpec{Name: "Updated", Value: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify update
	loaded, err := store.Load(ctx, "test-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "name", loaded.Name, "Updated")
	testutil.AssertEqual(t, "value", loaded.Value, 2)
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore[*mockStoreSpec](t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	err = store.Save(ctx, "test-id", &mockStoreSpec{Name: "Doomed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = store.Delete(ctx, "test-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = store.Load(ctx, "test-id")
	testutil.AssertEqual(t, "not found", errors.Is(err, ErrNotFound), true)

	// Deleting again is not an error
	err = store.Delete(ctx, "test-id")
	if err != nil {
		t.Errorf("unexpected error deleting missing record: %v", err)
	}
}

func TestFileStore_filePath(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](tmpDir)
	if err != nil {
		t.Fatalf("unexpected error creating store: %v", err)
	}

	result := store.filePath("test-id")

	expected := filepath.Join(tmpDir, "test-id.json")
	testutil.AssertEqual(t, "file path", result, expected)
}
