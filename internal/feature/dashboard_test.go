package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/officehub/console/internal/notify"
	"github.com/officehub/console/internal/realtime"
	"github.com/officehub/console/internal/restapi"
	"github.com/officehub/console/internal/view"
)

type dashboardFixture struct {
	dashboard *Dashboard
	document  *view.Document
	toasts    []notify.Toast
}

func newDashboardFixture(t *testing.T, api *restapi.Client) *dashboardFixture {
	t.Helper()

	document := view.NewDocument()
	require.NoError(t, document.Append("", view.NewNode("div").WithID(DashboardID).WithChildren(
		view.NewNode("div").WithID(ActiveUsersID),
		view.NewNode("div").WithID(UserActivityID),
		view.NewNode("span").WithID("stat-total_users").WithText("0"),
		view.NewNode("span").WithID("stat-active_sessions").WithText("0"),
	)))
	require.NoError(t, document.Append("", view.NewNode("tbody").WithID(AuditLogsID)))
	require.NoError(t, document.Append("", view.NewNode("div").WithID(AlertsContainerID)))

	presenter := notify.NewPresenter(zap.NewNop(), document, time.Minute)

	f := &dashboardFixture{document: document}
	presenter.Subscribe(func(toast notify.Toast) {
		f.toasts = append(f.toasts, toast)
	})

	client := realtime.NewClient(zap.NewNop(), realtime.DefaultOptions("ws://127.0.0.1:0"), presenter, notify.NewIndicator(zap.NewNop(), document))
	f.dashboard = NewDashboard(zap.NewNop(), client, presenter, document, api)

	return f
}

func TestStatsUpdateTouchesOnlyNamedCounters(t *testing.T) {
	f := newDashboardFixture(t, nil)

	f.dashboard.onStatsUpdate(rawParams(t, map[string]any{
		"total_users": 128,
	}))

	assert.Equal(t, "128", f.document.Lookup("stat-total_users").Text)
	assert.Equal(t, "0", f.document.Lookup("stat-active_sessions").Text)
}

func TestStatsUpdateIgnoresUnknownCounter(t *testing.T) {
	f := newDashboardFixture(t, nil)

	f.dashboard.onStatsUpdate(rawParams(t, map[string]any{
		"no_such_stat": 1,
	}))

	assert.Nil(t, f.document.Lookup("stat-no_such_stat"))
}

func TestUserStatusChangeLoginAndLogout(t *testing.T) {
	f := newDashboardFixture(t, nil)
	dashboard, document := f.dashboard, f.document

	login := rawParams(t, map[string]any{
		"action":    "login",
		"user_id":   9,
		"user_name": "Leo Tan",
		"role":      "student",
	})

	dashboard.onUserStatusChange(login)
	require.NotNil(t, document.Lookup("user-9"))
	assert.Equal(t, 1, document.ChildCount(ActiveUsersID))

	// A second login frame for the same user must not duplicate the entry.
	dashboard.onUserStatusChange(login)
	assert.Equal(t, 1, document.ChildCount(ActiveUsersID))

	dashboard.onUserStatusChange(rawParams(t, map[string]any{
		"action":  "logout",
		"user_id": 9,
	}))
	assert.Nil(t, document.Lookup("user-9"))
	assert.Zero(t, document.ChildCount(ActiveUsersID))
}

func TestUserActivityFeedIsCapped(t *testing.T) {
	f := newDashboardFixture(t, nil)
	dashboard, document := f.dashboard, f.document

	for i := 0; i < maxFeedEntries+5; i++ {
		dashboard.onUserActivity(rawParams(t, map[string]any{
			"user_name":   fmt.Sprintf("user-%d", i),
			"action_type": "login",
		}))
	}

	assert.Equal(t, maxFeedEntries, document.ChildCount(UserActivityID))
}

func TestAuditFeedKeepsNewestFifty(t *testing.T) {
	f := newDashboardFixture(t, nil)
	dashboard, document := f.dashboard, f.document

	for i := 1; i <= maxFeedEntries+5; i++ {
		dashboard.onAuditLog(rawParams(t, map[string]any{
			"id":         i,
			"action":     "update",
			"actor_name": "Ana",
			"is_success": true,
		}))
	}

	assert.Equal(t, maxFeedEntries, document.ChildCount(AuditLogsID))

	ids := document.ChildIDs(AuditLogsID)
	require.NotEmpty(t, ids)
	assert.Equal(t, fmt.Sprintf("audit-%d", maxFeedEntries+5), ids[0])

	// The oldest entries fell off the tail.
	assert.Nil(t, document.Lookup("audit-1"))
	assert.Nil(t, document.Lookup("audit-5"))
	assert.NotNil(t, document.Lookup("audit-6"))
}

func TestAuditRowCarriesOutcome(t *testing.T) {
	f := newDashboardFixture(t, nil)
	dashboard, document := f.dashboard, f.document

	dashboard.onAuditLog(rawParams(t, map[string]any{
		"id":         1,
		"action":     "delete",
		"is_success": false,
	}))

	row := document.Lookup("audit-1")
	require.NotNil(t, row)
	assert.True(t, row.HasClass(view.HighlightClass))

	last := row.Children[len(row.Children)-1]
	assert.Equal(t, "Failed", last.Text)
	assert.True(t, last.HasClass("outcome-failed"))

	// Absent actor renders as System.
	assert.Equal(t, "System", row.Children[2].Text)
}

func TestSystemAlertLandsInContainerAndExpires(t *testing.T) {
	f := newDashboardFixture(t, nil)
	dashboard, document := f.dashboard, f.document

	dashboard.onSystemAlert(rawParams(t, map[string]any{
		"level":   "warning",
		"title":   "Maintenance",
		"message": "Scheduled downtime at midnight",
		"timeout": 50,
	}))

	require.Equal(t, 1, document.ChildCount(AlertsContainerID))
	alertId := document.ChildIDs(AlertsContainerID)[0]
	assert.True(t, document.Lookup(alertId).HasClass("alert-warning"))

	assert.Eventually(t, func() bool {
		return document.Lookup(alertId) == nil
	}, time.Second, 10*time.Millisecond)
}

func TestSystemAlertFallsBackToRootWithoutContainer(t *testing.T) {
	document := view.NewDocument()
	dashboard := NewDashboard(zap.NewNop(), nil, nil, document, nil)

	dashboard.onSystemAlert(rawParams(t, map[string]any{
		"title":   "Maintenance",
		"message": "Scheduled downtime at midnight",
	}))

	found := false
	for _, child := range document.Root().Children {
		if child.HasClass("system-alert") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCreateAnnouncementValidationBlocksRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty announcement must never reach the server")
	}))
	defer server.Close()

	f := newDashboardFixture(t, restapi.NewClient(zap.NewNop(), server.URL, ""))

	err := f.dashboard.CreateAnnouncement(context.Background(), "  ", "content")
	require.Error(t, err)

	require.Len(t, f.toasts, 1)
	assert.Equal(t, notify.KindError, f.toasts[0].Kind)
	assert.Contains(t, f.toasts[0].Message, "title and content")
}

func TestCreateAnnouncementSuccess(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	f := newDashboardFixture(t, restapi.NewClient(zap.NewNop(), server.URL, "csrf-token"))

	err := f.dashboard.CreateAnnouncement(context.Background(), "Enrollment", "Opens Monday")
	require.NoError(t, err)

	assert.Equal(t, "Enrollment", gotBody["title"])
	assert.Equal(t, "Opens Monday", gotBody["content"])

	require.Len(t, f.toasts, 1)
	assert.Equal(t, notify.KindSuccess, f.toasts[0].Kind)
	assert.Equal(t, "Announcement created successfully", f.toasts[0].Message)
}

func TestCreateAnnouncementServerRefusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "title already used"})
	}))
	defer server.Close()

	f := newDashboardFixture(t, restapi.NewClient(zap.NewNop(), server.URL, ""))

	err := f.dashboard.CreateAnnouncement(context.Background(), "Enrollment", "Opens Monday")
	require.NoError(t, err)

	require.Len(t, f.toasts, 1)
	assert.Equal(t, notify.KindError, f.toasts[0].Kind)
	assert.Equal(t, "title already used", f.toasts[0].Message)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "unknown time", formatTimestamp(""))
	assert.Equal(t, "not-a-time", formatTimestamp("not-a-time"))

	formatted := formatTimestamp("2026-03-05T15:04:00Z")
	assert.Equal(t, "Mar 5, 3:04 PM", formatted)
}
