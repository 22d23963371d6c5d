package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStoreAt(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)
	return store
}

func TestStoreSaveLoad(t *testing.T) {
	store := newTestStore(t)

	sess := &Session{
		ID:        Key("vc.example.com", "admin"),
		Hostname:  "vc.example.com",
		Username:  "admin",
		Token:     "token-1",
		Endpoint:  "api",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(sess))

	info, err := os.Stat(filepath.Join(store.Dir(), sess.ID+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, loaded.Token)
	assert.True(t, sess.CreatedAt.Equal(loaded.CreatedAt))

	found := store.Lookup("vc.example.com", "admin")
	require.NotNil(t, found)
	assert.Equal(t, "token-1", found.Token)

	assert.Nil(t, store.Lookup("vc.example.com", "someone-else"))
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestStoreList(t *testing.T) {
	store := newTestStore(t)

	for _, user := range []string{"a", "b"} {
		require.NoError(t, store.Save(&Session{ID: Key("vc", user), Hostname: "vc", Username: user, Token: user}))
	}
	// Garbage and non-json files are skipped
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0600))

	sessions, err := store.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	id := Key("vc", "admin")
	require.NoError(t, store.Save(&Session{ID: id, Token: "t"}))

	require.NoError(t, store.Delete(id))
	_, err := store.Load(id)
	assert.Error(t, err)

	// Deleting twice is not an error
	assert.NoError(t, store.Delete(id))
}
