package feature

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/officehub/console/internal/restapi"
	"github.com/officehub/console/internal/view"
)

func newStudentFixture(t *testing.T, handler http.HandlerFunc) (*StudentManager, *view.Document, *int, func()) {
	t.Helper()

	document := view.NewDocument()
	require.NoError(t, document.Append("", view.NewNode("div").WithID(ContentContainerID)))

	server := httptest.NewServer(handler)
	api := restapi.NewClient(zap.NewNop(), server.URL, "csrf-token")

	reloads := 0
	manager := NewStudentManager(zap.NewNop(), document, api, func() {
		reloads++
	})

	return manager, document, &reloads, server.Close
}

func flashBanners(document *view.Document) []*view.Node {
	var banners []*view.Node
	for _, child := range document.Lookup(ContentContainerID).Children {
		if child.HasClass("flash-error") {
			banners = append(banners, child)
		}
	}

	return banners
}

func TestToggleStatusSuccessReloads(t *testing.T) {
	manager, document, reloads, closeServer := newStudentFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	defer closeServer()

	require.NoError(t, manager.ToggleStatus(context.Background(), 42, false))

	assert.Equal(t, 1, *reloads)
	assert.Empty(t, flashBanners(document))
}

func TestToggleStatusRefusalShowsBannerWithoutReload(t *testing.T) {
	manager, document, reloads, closeServer := newStudentFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "account locked"})
	})
	defer closeServer()

	require.NoError(t, manager.ToggleStatus(context.Background(), 42, true))

	assert.Zero(t, *reloads)

	banners := flashBanners(document)
	require.Len(t, banners, 1)
	require.NotEmpty(t, banners[0].Children)
	assert.Equal(t, "Error: account locked", banners[0].Children[0].Text)
}

func TestToggleStatusTransportFailure(t *testing.T) {
	manager, document, reloads, closeServer := newStudentFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	// Close the backend up front so the request fails outright.
	closeServer()

	err := manager.ToggleStatus(context.Background(), 42, true)
	require.Error(t, err)

	assert.Zero(t, *reloads)

	banners := flashBanners(document)
	require.Len(t, banners, 1)
	assert.Equal(t, "An unexpected error occurred. Please try again.", banners[0].Children[0].Text)
}

func TestFlashBannersStackNewestFirst(t *testing.T) {
	document := view.NewDocument()
	require.NoError(t, document.Append("", view.NewNode("div").WithID(ContentContainerID)))
	manager := NewStudentManager(zap.NewNop(), document, nil, nil)

	first := manager.FlashError("Error: one")
	second := manager.FlashError("Error: two")

	ids := document.ChildIDs(ContentContainerID)
	assert.Equal(t, []string{second, first}, ids)
	assert.True(t, strings.HasPrefix(first, "flash-"))
}

func TestDismissFlashRemovesBanner(t *testing.T) {
	document := view.NewDocument()
	require.NoError(t, document.Append("", view.NewNode("div").WithID(ContentContainerID)))
	manager := NewStudentManager(zap.NewNop(), document, nil, nil)

	bannerId := manager.FlashError("Error: one")
	require.NotNil(t, document.Lookup(bannerId))

	manager.DismissFlash(bannerId)
	assert.Nil(t, document.Lookup(bannerId))

	// Dismissing twice is harmless.
	manager.DismissFlash(bannerId)
}

func TestFlashFallsBackToRootWithoutContainer(t *testing.T) {
	document := view.NewDocument()
	manager := NewStudentManager(zap.NewNop(), document, nil, nil)

	bannerId := manager.FlashError("Error: one")

	assert.NotNil(t, document.Lookup(bannerId))
}
