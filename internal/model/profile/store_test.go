package profile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chatbox/internal/model/profile"
)

func TestMemoryStoreFindByID(t *testing.T) {
	req := require.New(t)
	store := profile.NewMemoryStore(profile.Seed())

	got, ok := store.FindByID(profile.DefaultID)
	req.True(ok)
	req.Equal("抱歉，连接出现了问题，请稍后再试。", got.FailureText)

	_, ok = store.FindByID("fr-FR")
	req.False(ok)
}

func TestMemoryStoreListIsCopy(t *testing.T) {
	store := profile.NewMemoryStore(profile.Seed())

	list := store.List()
	list[0].Title = "changed"

	got, _ := store.FindByID(list[0].ID)
	if got.Title == "changed" {
		t.Fatal("List must not expose the backing slice")
	}
}
