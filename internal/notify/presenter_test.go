package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/officehub/console/internal/view"
)

func TestShowCreatesContainerLazily(t *testing.T) {
	document := view.NewDocument()
	presenter := NewPresenter(zap.NewNop(), document, time.Minute)

	assert.Nil(t, document.Lookup(ContainerID))

	id := presenter.Show("Saved", "Admin saved", KindSuccess)

	require.NotNil(t, document.Lookup(ContainerID))
	assert.True(t, presenter.Visible(id))
}

func TestShowKeepsEveryToast(t *testing.T) {
	document := view.NewDocument()
	presenter := NewPresenter(zap.NewNop(), document, time.Minute)

	first := presenter.Show("One", "first", KindInfo)
	second := presenter.Show("One", "first", KindInfo)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, document.ChildCount(ContainerID))
}

func TestToastAutoDismisses(t *testing.T) {
	document := view.NewDocument()
	presenter := NewPresenter(zap.NewNop(), document, 60*time.Millisecond)

	id := presenter.Show("Update", "done", KindInfo)
	assert.True(t, presenter.Visible(id))

	assert.Eventually(t, func() bool {
		return !presenter.Visible(id)
	}, time.Second, 10*time.Millisecond)
}

func TestPausedToastOutlivesDismissWindow(t *testing.T) {
	document := view.NewDocument()
	presenter := NewPresenter(zap.NewNop(), document, 60*time.Millisecond)

	id := presenter.Show("Update", "done", KindInfo)
	presenter.Pause(id)

	time.Sleep(150 * time.Millisecond)
	assert.True(t, presenter.Visible(id))

	presenter.Resume(id)

	assert.Eventually(t, func() bool {
		return !presenter.Visible(id)
	}, time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	document := view.NewDocument()
	presenter := NewPresenter(zap.NewNop(), document, time.Minute)

	id := presenter.Show("Update", "done", KindInfo)

	presenter.Close(id)
	presenter.Close(id)

	assert.False(t, presenter.Visible(id))
}

func TestSubscribeObservesToasts(t *testing.T) {
	document := view.NewDocument()
	presenter := NewPresenter(zap.NewNop(), document, time.Minute)

	var seen []Toast
	presenter.Subscribe(func(toast Toast) {
		seen = append(seen, toast)
	})

	presenter.Show("Disconnected", "Reconnecting...", KindWarning)

	require.Len(t, seen, 1)
	assert.Equal(t, "Disconnected", seen[0].Title)
	assert.Equal(t, KindWarning, seen[0].Kind)
}

func TestIndicatorTogglesBadge(t *testing.T) {
	document := view.NewDocument()
	indicator := NewIndicator(zap.NewNop(), document)

	var flips []bool
	indicator.Subscribe(func(connected bool) {
		flips = append(flips, connected)
	})

	indicator.Set(true)
	require.NotNil(t, document.Lookup(IndicatorID))
	assert.True(t, indicator.Connected())
	assert.Equal(t, "Connected", document.Lookup(IndicatorID).Text)

	indicator.Set(false)
	assert.False(t, indicator.Connected())
	assert.Equal(t, "Disconnected", document.Lookup(IndicatorID).Text)
	assert.False(t, document.Lookup(IndicatorID).HasClass("status-connected"))

	assert.Equal(t, []bool{true, false}, flips)
}

func TestIndicatorReusesBadgeNode(t *testing.T) {
	document := view.NewDocument()
	indicator := NewIndicator(zap.NewNop(), document)

	indicator.Set(false)
	indicator.Set(true)
	indicator.Set(false)

	count := 0
	for _, child := range document.Root().Children {
		if child.ID == IndicatorID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
