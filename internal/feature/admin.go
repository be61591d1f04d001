package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/officehub/console/internal/forms"
	"github.com/officehub/console/internal/notify"
	"github.com/officehub/console/internal/realtime"
	"github.com/officehub/console/internal/restapi"
	"github.com/officehub/console/internal/view"
	"go.uber.org/zap"
)

// Element ids the administration page is expected to provide.
const (
	AdminTableBodyID = "adminTableBody"

	totalOfficesCounterID      = "totalOfficesCounter"
	activeAdminsCounterID      = "activeAdminsCounter"
	unassignedOfficesCounterID = "unassignedOfficesCounter"
	unassignedAdminsCounterID  = "unassignedAdminsCounter"
)

const adminRoom = "admin"

// adminStats carries the counter block attached to admin events. Fields
// are pointers so partial payloads only touch the counters they name.
type adminStats struct {
	TotalOffices       *int `json:"total_offices"`
	ActiveOfficeAdmins *int `json:"active_office_admins"`
	UnassignedOffices  *int `json:"unassigned_offices"`
	UnassignedAdmins   *int `json:"unassigned_admins"`
}

// AdminDirectory reconciles the administrator table against the
// admin_* event stream and drives the admin-management REST flows.
type AdminDirectory struct {
	logger    *zap.Logger
	client    *realtime.Client
	presenter *notify.Presenter
	document  *view.Document
	api       *restapi.Client
	reload    func()

	highlightTTL time.Duration
	fadeOut      time.Duration

	joinOnce sync.Once
}

func NewAdminDirectory(
	logger *zap.Logger,
	client *realtime.Client,
	presenter *notify.Presenter,
	document *view.Document,
	api *restapi.Client,
	reload func(),
) *AdminDirectory {
	return &AdminDirectory{
		logger:       logger,
		client:       client,
		presenter:    presenter,
		document:     document,
		api:          api,
		reload:       reload,
		highlightTTL: 5 * time.Second,
		fadeOut:      500 * time.Millisecond,
	}
}

// Initialize validates the page markup and attaches the subscriptions.
// A page without the admin table skips the feature entirely.
func (r *AdminDirectory) Initialize() {
	if r.document.Lookup(AdminTableBodyID) == nil {
		r.logger.Debug("admin table not present, skipping admin directory")
		return
	}

	r.client.On("admin_added", r.onAdminAdded)
	r.client.On("admin_updated", r.onAdminUpdated)
	r.client.On("admin_deleted", r.onAdminDeleted)
	r.client.On("admin_office_updated", r.onOfficeUpdated)
	r.client.On("admin_status_updated", r.onStatusUpdated)
	r.client.On("office_admin_removed", r.onOfficeAdminRemoved)
	r.client.On("admin_password_reset", r.onPasswordReset)
	r.client.On("dashboard_stats_update", r.onStatsUpdate)

	r.client.OnConnect(func(string) {
		r.joinOnce.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := r.client.Join(ctx, adminRoom); err != nil {
				r.logger.Warn("failed to join admin room", zap.Error(err))
			}
		})
	})
}

func (r *AdminDirectory) onAdminAdded(params json.RawMessage) {
	var data struct {
		Admin restapi.Admin `json:"admin"`
		Stats adminStats    `json:"stats"`
	}
	if !decode(r.logger, "admin_added", params, &data) {
		return
	}

	rowId := adminRowID(data.Admin.Id)
	if r.document.Lookup(rowId) != nil {
		// The row may already exist when this page created the admin
		// itself; a second keyed insert is never allowed.
		r.logger.Debug("duplicate admin_added ignored", zap.Int("adminId", data.Admin.Id))
		return
	}

	if err := r.document.Prepend(AdminTableBodyID, adminRow(data.Admin)); err != nil {
		r.logger.Warn("failed to insert admin row", zap.Error(err))
		return
	}
	r.document.Highlight(rowId, r.highlightTTL)
	r.applyStats(data.Stats)

	r.presenter.Show("Admin Management",
		fmt.Sprintf("New admin %s has been added", displayName(data.Admin)),
		notify.KindSuccess)
}

func (r *AdminDirectory) onAdminUpdated(params json.RawMessage) {
	var data struct {
		Admin restapi.Admin `json:"admin"`
	}
	if !decode(r.logger, "admin_updated", params, &data) {
		return
	}

	rowId := adminRowID(data.Admin.Id)
	if r.document.Lookup(rowId) == nil {
		// Updates for rows this page never rendered are dropped, not
		// upserted.
		r.logger.Debug("admin_updated for unknown row dropped", zap.Int("adminId", data.Admin.Id))
		return
	}

	if err := r.document.ReplaceChildren(rowId, adminRowCells(data.Admin)...); err != nil {
		r.logger.Warn("failed to update admin row", zap.Error(err))
		return
	}
	r.document.Highlight(rowId, r.highlightTTL)

	r.presenter.Show("Admin Management",
		fmt.Sprintf("Admin %s has been updated", displayName(data.Admin)),
		notify.KindInfo)
}

func (r *AdminDirectory) onAdminDeleted(params json.RawMessage) {
	var data struct {
		AdminId int        `json:"admin_id"`
		Stats   adminStats `json:"stats"`
	}
	if !decode(r.logger, "admin_deleted", params, &data) {
		return
	}

	r.applyStats(data.Stats)

	rowId := adminRowID(data.AdminId)
	if r.document.Lookup(rowId) == nil {
		return
	}

	r.document.FadeOut(rowId, r.fadeOut)

	r.presenter.Show("Admin Management", "Admin has been deleted", notify.KindInfo)
}

func (r *AdminDirectory) onOfficeUpdated(params json.RawMessage) {
	var data struct {
		AdminId int `json:"admin_id"`
		Office  struct {
			Name string `json:"name"`
		} `json:"office"`
	}
	if !decode(r.logger, "admin_office_updated", params, &data) {
		return
	}

	if !r.setOfficeCell(data.AdminId, data.Office.Name) {
		return
	}

	r.presenter.Show("Admin Management", "Admin office assignment updated", notify.KindInfo)
}

func (r *AdminDirectory) onStatusUpdated(params json.RawMessage) {
	var data struct {
		AdminId  int        `json:"admin_id"`
		IsActive bool       `json:"is_active"`
		Stats    adminStats `json:"stats"`
	}
	if !decode(r.logger, "admin_status_updated", params, &data) {
		return
	}

	r.applyStats(data.Stats)

	updated := r.document.Update(adminStatusCellID(data.AdminId), func(n *view.Node) {
		setStatusCell(n, data.IsActive)
	})
	if !updated {
		return
	}

	r.presenter.Show("Admin Management", "Admin status updated", notify.KindInfo)
}

func (r *AdminDirectory) onOfficeAdminRemoved(params json.RawMessage) {
	var data struct {
		AdminId int `json:"admin_id"`
	}
	if !decode(r.logger, "office_admin_removed", params, &data) {
		return
	}

	if !r.setOfficeCell(data.AdminId, "") {
		return
	}

	r.presenter.Show("Admin Management", "Admin removed from office", notify.KindInfo)
}

func (r *AdminDirectory) onPasswordReset(params json.RawMessage) {
	var data struct {
		AdminName string `json:"admin_name"`
	}
	if !decode(r.logger, "admin_password_reset", params, &data) {
		return
	}

	r.presenter.Show("Admin Management",
		fmt.Sprintf("Password for %s has been reset", data.AdminName),
		notify.KindSuccess)
}

func (r *AdminDirectory) onStatsUpdate(params json.RawMessage) {
	var stats adminStats
	if !decode(r.logger, "dashboard_stats_update", params, &stats) {
		return
	}

	r.applyStats(stats)
}

// SubmitForm validates and submits the add/edit admin form, keeping the
// submit trigger disabled for the duration of the request.
func (r *AdminDirectory) SubmitForm(
	ctx context.Context,
	action string,
	form forms.AdminForm,
	photo *restapi.Upload,
	setBusy func(bool),
) error {
	if err := form.Validate(); err != nil {
		r.presenter.Show("Admin Management", err.Error(), notify.KindError)
		return err
	}

	if setBusy != nil {
		setBusy(true)
		defer setBusy(false)
	}

	fields := map[string]string{
		"first_name":  form.FirstName,
		"middle_name": form.MiddleName,
		"last_name":   form.LastName,
		"email":       form.Email,
	}
	if form.Password != "" {
		fields["password"] = form.Password
	}

	result, err := r.api.SubmitForm(ctx, action, fields, photo)
	if err != nil {
		r.presenter.Show("Admin Management", "An error occurred while saving admin", notify.KindError)
		return err
	}

	if result.Redirected {
		if r.reload != nil {
			r.reload()
		}
		return nil
	}

	if !result.Success {
		r.presenter.Show("Admin Management",
			orDefault(result.Message, "Error saving admin"),
			notify.KindError)
		return nil
	}

	r.presenter.Show("Admin Management", "Admin saved successfully", notify.KindSuccess)

	return nil
}

// ResetPassword asks the backend to reset an administrator credential.
func (r *AdminDirectory) ResetPassword(ctx context.Context, adminId int) error {
	result, err := r.api.ResetAdminPassword(ctx, adminId)
	if err != nil {
		r.presenter.Show("Admin Management", "An error occurred while resetting password", notify.KindError)
		return err
	}

	if !result.Success {
		r.presenter.Show("Admin Management",
			orDefault(result.Message, "Error resetting password"),
			notify.KindError)
		return nil
	}

	r.presenter.Show("Admin Management", "Password reset successfully", notify.KindSuccess)

	return nil
}

// RemoveFromOffice detaches an administrator from an office.
func (r *AdminDirectory) RemoveFromOffice(ctx context.Context, officeId, adminId int) error {
	result, err := r.api.RemoveOfficeAdmin(ctx, officeId, adminId)
	if err != nil {
		r.presenter.Show("Admin Management", "An error occurred while removing admin", notify.KindError)
		return err
	}

	if !result.Success {
		r.presenter.Show("Admin Management",
			orDefault(result.Message, "Error removing admin"),
			notify.KindError)
		return nil
	}

	r.setOfficeCell(adminId, "")
	r.presenter.Show("Admin Management", "Admin removed from office", notify.KindSuccess)

	return nil
}

func (r *AdminDirectory) setOfficeCell(adminId int, officeName string) bool {
	return r.document.Update(adminOfficeCellID(adminId), func(n *view.Node) {
		setOfficeCell(n, officeName)
	})
}

func (r *AdminDirectory) applyStats(stats adminStats) {
	counters := map[string]*int{
		totalOfficesCounterID:      stats.TotalOffices,
		activeAdminsCounterID:      stats.ActiveOfficeAdmins,
		unassignedOfficesCounterID: stats.UnassignedOffices,
		unassignedAdminsCounterID:  stats.UnassignedAdmins,
	}

	for id, value := range counters {
		if value == nil {
			continue
		}

		count := *value
		r.document.Update(id, func(n *view.Node) {
			n.Text = fmt.Sprintf("%d", count)
		})
	}
}

func adminRowID(adminId int) string {
	return fmt.Sprintf("admin-%d", adminId)
}

func adminOfficeCellID(adminId int) string {
	return adminRowID(adminId) + "-office"
}

func adminStatusCellID(adminId int) string {
	return adminRowID(adminId) + "-status"
}

// adminRow maps an administrator to its table row. Entity fields enter
// the tree as text only; escaping happens at render time.
func adminRow(admin restapi.Admin) *view.Node {
	return view.NewNode("tr").
		WithID(adminRowID(admin.Id)).
		WithAttr("data-admin-id", fmt.Sprintf("%d", admin.Id)).
		WithChildren(adminRowCells(admin)...)
}

func adminRowCells(admin restapi.Admin) []*view.Node {
	officeCell := view.NewNode("td").WithID(adminOfficeCellID(admin.Id))
	setOfficeCell(officeCell, admin.OfficeName)

	statusCell := view.NewNode("td").WithID(adminStatusCellID(admin.Id))
	setStatusCell(statusCell, admin.IsActive)

	return []*view.Node{
		officeCell,
		view.NewNode("td").WithText(displayName(admin)),
		view.NewNode("td").WithText(admin.Email),
		statusCell,
	}
}

func setOfficeCell(n *view.Node, officeName string) {
	if officeName == "" {
		n.Text = "Unassigned"
		n.AddClass("unassigned")
	} else {
		n.Text = officeName
		n.RemoveClass("unassigned")
	}
}

func setStatusCell(n *view.Node, active bool) {
	if active {
		n.Text = "Active"
		n.RemoveClass("status-inactive")
		n.AddClass("status-active")
	} else {
		n.Text = "Inactive"
		n.RemoveClass("status-active")
		n.AddClass("status-inactive")
	}
}

func displayName(admin restapi.Admin) string {
	parts := []string{admin.FirstName}
	if admin.MiddleName != "" {
		parts = append(parts, admin.MiddleName)
	}
	parts = append(parts, admin.LastName)

	return strings.Join(parts, " ")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
