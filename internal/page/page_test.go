package page

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T) *Page {
	t.Helper()
	p, err := Parse(Shell("fetch-employers", "employer-list"))
	require.NoError(t, err)
	return p
}

func TestRegion_ReplaceHTML(t *testing.T) {
	p := shell(t)
	r, err := p.Region("employer-list")
	require.NoError(t, err)
	assert.Equal(t, "", r.HTML())

	require.NoError(t, r.ReplaceHTML("<p>Acme</p><p>Globex</p>"))
	assert.Equal(t, "<p>Acme</p><p>Globex</p>", r.HTML())
	assert.Equal(t, []string{"Acme", "Globex"}, r.Children())

	require.NoError(t, r.ReplaceHTML("<p>Initech</p>"))
	assert.Equal(t, []string{"Initech"}, r.Children())

	require.NoError(t, r.ReplaceHTML(""))
	assert.Equal(t, "", r.HTML())
	assert.Empty(t, r.Children())
}

func TestRegion_EscapedTextStaysLiteral(t *testing.T) {
	p := shell(t)
	r, err := p.Region("employer-list")
	require.NoError(t, err)

	require.NoError(t, r.ReplaceHTML("<p>&lt;b&gt;Bold&lt;/b&gt;</p>"))
	assert.Equal(t, []string{"<b>Bold</b>"}, r.Children())

	require.NoError(t, r.ReplaceHTML("<p><b>Bold</b></p>"))
	assert.Equal(t, []string{"Bold"}, r.Children())
}

func TestLookup_MissingElement(t *testing.T) {
	p := shell(t)

	_, err := p.Region("nope")
	assert.ErrorIs(t, err, ErrNoElement)
	_, err = p.Trigger("nope")
	assert.ErrorIs(t, err, ErrNoElement)
	_, err = p.Region(`bad"id`)
	assert.ErrorIs(t, err, ErrNoElement)
	_, err = p.Region("")
	assert.ErrorIs(t, err, ErrNoElement)
}

func TestTrigger_ListenersInOrder(t *testing.T) {
	p := shell(t)
	tr, err := p.Trigger("fetch-employers")
	require.NoError(t, err)

	var got []int
	tr.AddListener(func() { got = append(got, 1) })

	again, err := p.Trigger("fetch-employers")
	require.NoError(t, err)
	assert.Same(t, tr, again)
	again.AddListener(func() { got = append(got, 2) })

	assert.Equal(t, 2, tr.Fire())
	assert.Equal(t, []int{1, 2}, got)
}

func TestOnChange(t *testing.T) {
	p := shell(t)
	var changes []Change
	p.OnChange(func(c Change) { changes = append(changes, c) })

	r, err := p.Region("employer-list")
	require.NoError(t, err)
	require.NoError(t, r.ReplaceHTML("<p>Acme</p>"))

	require.Len(t, changes, 1)
	assert.Equal(t, Change{ID: "employer-list", HTML: "<p>Acme</p>"}, changes[0])

	doc, err := p.HTML()
	require.NoError(t, err)
	assert.Contains(t, doc, `<div id="employer-list"><p>Acme</p></div>`)
}

func TestRegion_ConcurrentReplace(t *testing.T) {
	p := shell(t)
	r, err := p.Region("employer-list")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.ReplaceHTML("<p>Acme</p>")
			_ = r.HTML()
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"Acme"}, r.Children())
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "page.html")
	sink := NewFileSink(path)

	p := shell(t)
	r, err := p.Region("employer-list")
	require.NoError(t, err)
	require.NoError(t, r.ReplaceHTML("<p>Acme</p>"))
	require.NoError(t, sink.Sync(p))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<p>Acme</p>")

	require.NoError(t, sink.Write("second"))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	_, err = os.Stat(path + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMirror_DoesNotBlockOnHeldLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	other := flock.New(path + ".lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = other.Unlock() })

	p := shell(t)
	r, err := p.Region("employer-list")
	require.NoError(t, err)

	m := NewMirror(NewFileSink(path), p, nil)
	p.OnChange(func(Change) { m.Request() })

	replaced := make(chan struct{})
	go func() {
		defer close(replaced)
		_ = r.ReplaceHTML("<p>Acme</p>")
		_ = r.ReplaceHTML("<p>Globex</p>")
	}()
	select {
	case <-replaced:
	case <-time.After(2 * time.Second):
		t.Fatal("region replacement waited on the page file lock")
	}

	require.NoError(t, other.Unlock())
	m.Flush()
	m.Close()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<p>Globex</p>")
}

func TestBound(t *testing.T) {
	p := shell(t)

	_, ok := p.Bound("fetch-employers")
	assert.False(t, ok, "no listener yet")

	tr, err := p.Trigger("fetch-employers")
	require.NoError(t, err)
	tr.AddListener(func() {})

	got, ok := p.Bound("fetch-employers")
	require.True(t, ok)
	assert.Same(t, tr, got)
	assert.Equal(t, 1, got.Listeners())

	_, ok = p.Bound("employer-list")
	assert.False(t, ok)
	_, ok = p.Bound("missing")
	assert.False(t, ok)
}
