package balancer

import (
	"testing"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	uid ids.ServerUID
}

func (a *stubAdapter) UID() ids.ServerUID          { return a.uid }
func (a *stubAdapter) Send(msg interface{}) error { return nil }

func TestChooseRoundRobinsWithinLanguagePair(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	a1 := &stubAdapter{uid: ids.NewServerUID()}
	a2 := &stubAdapter{uid: ids.NewServerUID()}
	registry.Add(a1, "en", "fr")
	registry.Add(a2, "en", "fr")

	req := messaging.NewTransJobReq(1, "en", "fr", false, 0, nil)
	first := registry.Choose(req)
	second := registry.Choose(req)
	third := registry.Choose(req)

	assert.Equal(t, a1.UID(), first.UID())
	assert.Equal(t, a2.UID(), second.UID())
	assert.Equal(t, a1.UID(), third.UID())
}

func TestChooseReturnsNilForUnknownLanguagePair(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	req := messaging.NewTransJobReq(1, "en", "de", false, 0, nil)
	assert.Nil(t, registry.Choose(req))
}

func TestRemoveInvokesOnRemoveHookAfterUnlocking(t *testing.T) {
	var notified ids.ServerUID
	registry := NewAdapterRegistry(func(uid ids.ServerUID) {
		// Re-entering the registry from the hook must not deadlock: proves
		// the hook runs outside registry.mu.
		registry2 := registry
		_ = registry2.SupportedLanguages()
		notified = uid
	})

	a1 := &stubAdapter{uid: ids.NewServerUID()}
	registry.Add(a1, "en", "fr")
	registry.Remove(a1.UID())

	assert.Equal(t, a1.UID(), notified)
	assert.Empty(t, registry.SupportedLanguages())
}

func TestRemoveUnknownUIDDoesNotInvokeHook(t *testing.T) {
	called := false
	registry := NewAdapterRegistry(func(ids.ServerUID) { called = true })
	registry.Remove(ids.NewServerUID())
	assert.False(t, called)
}

func TestSupportedLanguagesGroupsTargetsBySource(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	registry.Add(&stubAdapter{uid: ids.NewServerUID()}, "en", "fr")
	registry.Add(&stubAdapter{uid: ids.NewServerUID()}, "en", "de")

	langs := registry.SupportedLanguages()
	require.Contains(t, langs, "en")
	assert.ElementsMatch(t, []string{"fr", "de"}, langs["en"])
}
