//go:build integration

package playwright

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/visualgate/internal/imaging"
	"github.com/kamilpajak/visualgate/internal/pagehost"
	"github.com/kamilpajak/visualgate/pkg/models"
)

const cardHTML = `<html><body style="margin:0">
<div id="card" style="display:flex;width:200px;height:50px">
  <span class="title">A</span><span>B</span><span>C</span>
</div></body></html>`

func TestSession_CaptureAndInspect(t *testing.T) {
	if !IsAvailable() {
		t.Skip("playwright driver not installed")
	}

	host, err := pagehost.Start([]byte(cardHTML), "card.html")
	require.NoError(t, err)
	defer host.Stop()

	s, err := Launch(Options{Headless: true, Viewport: models.Viewport{Width: 400, Height: 300}}, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.Capture(ctx, "#card", nil)
	assert.ErrorIs(t, err, ErrNotOpen)

	require.NoError(t, s.Open(ctx, host.EntryURL()))

	shot, err := s.Capture(ctx, "#card", nil)
	require.NoError(t, err)
	bm, err := imaging.DecodeBytes("card", shot)
	require.NoError(t, err)
	assert.Equal(t, 200, bm.Width)
	assert.Equal(t, 50, bm.Height)

	info, err := s.Inspect(ctx, "#card", []string{".title", ".missing"})
	require.NoError(t, err)
	assert.True(t, info.Found)
	assert.Equal(t, 3, info.ChildCount)
	assert.Equal(t, "flex", info.Display)
	assert.Equal(t, 1, info.Matches[".title"])
	assert.Equal(t, 0, info.Matches[".missing"])
}
