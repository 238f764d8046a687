package artifact

import (
	"os"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestWriteAndReadDocument(t *testing.T) {
	store := newTestStore(t)

	if err := store.WriteDocument("session-a", []byte("<html>a</html>")); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	doc, err := store.ReadDocument("session-a")
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if string(doc) != "<html>a</html>" {
		t.Fatalf("document = %q", doc)
	}
	if _, err := store.ReadDocument("session-b"); err == nil {
		t.Fatalf("expected read error for unknown session")
	}
}

func TestSessionsGetDistinctDirectories(t *testing.T) {
	store := newTestStore(t)

	if store.AssetDir("s1") == store.AssetDir("s2") {
		t.Fatalf("asset dirs collide")
	}
	if _, err := store.WriteAsset("s1", "a.jpg", []byte("one")); err != nil {
		t.Fatalf("WriteAsset s1: %v", err)
	}
	if _, err := store.WriteAsset("s2", "a.jpg", []byte("two")); err != nil {
		t.Fatalf("WriteAsset s2: %v", err)
	}
	got, err := store.ReadAsset("s1", "a.jpg")
	if err != nil {
		t.Fatalf("ReadAsset: %v", err)
	}
	if string(got) != "one" {
		t.Fatalf("s1 asset = %q, want one", got)
	}
}

func TestPatchSlotUpdatesDocument(t *testing.T) {
	store := newTestStore(t)
	doc := `<html><img id="portrait-image" src="assets/portrait.jpg"></html>`
	if err := store.WriteDocument("s1", []byte(doc)); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	ok, err := store.PatchSlot("s1", "portrait-image", "/assets/s1/new.jpg")
	if err != nil {
		t.Fatalf("PatchSlot: %v", err)
	}
	if !ok {
		t.Fatalf("slot reported missing")
	}
	patched, err := store.ReadDocument("s1")
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if !strings.Contains(string(patched), `src="/assets/s1/new.jpg"`) {
		t.Fatalf("patch not persisted: %s", patched)
	}
}

func TestPatchSlotMissingSlotIsNotFatal(t *testing.T) {
	store := newTestStore(t)
	if err := store.WriteDocument("s1", []byte("<html></html>")); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	ok, err := store.PatchSlot("s1", "portrait-image", "x.jpg")
	if err != nil {
		t.Fatalf("PatchSlot: %v", err)
	}
	if ok {
		t.Fatalf("expected slot to be reported missing")
	}
}

func TestListAssetsSorted(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"b.mp4", "a.jpg"} {
		if _, err := store.WriteAsset("s1", name, []byte("x")); err != nil {
			t.Fatalf("WriteAsset %s: %v", name, err)
		}
	}

	names, err := store.ListAssets("s1")
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(names) != 2 || names[0] != "a.jpg" || names[1] != "b.mp4" {
		t.Fatalf("names = %v", names)
	}

	empty, err := store.ListAssets("never-seen")
	if err != nil || empty != nil {
		t.Fatalf("unknown session: names=%v err=%v", empty, err)
	}
}

func TestPurgeRemovesEverything(t *testing.T) {
	store := newTestStore(t)
	if err := store.WriteDocument("s1", []byte("<html></html>")); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if _, err := store.WriteAsset("s1", "a.jpg", []byte("x")); err != nil {
		t.Fatalf("WriteAsset: %v", err)
	}

	if err := store.Purge("s1"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := os.Stat(store.DocumentPath("s1")); !os.IsNotExist(err) {
		t.Fatalf("document survived purge: %v", err)
	}
	if _, err := store.ReadAsset("s1", "a.jpg"); err == nil {
		t.Fatalf("asset survived purge")
	}
}

func TestTraversalNamesRejected(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"..", ".", "a/b", `a\b`, ""} {
		if _, err := store.WriteAsset("s1", name, []byte("x")); err == nil {
			t.Fatalf("name %q accepted", name)
		}
		if _, err := store.AssetPath(name, "a.jpg"); err == nil {
			t.Fatalf("session %q accepted", name)
		}
	}
}
