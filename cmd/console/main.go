package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/officehub/console/internal/feature"
	"github.com/officehub/console/internal/notify"
	"github.com/officehub/console/internal/realtime"
	"github.com/officehub/console/internal/restapi"
	"github.com/officehub/console/internal/view"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	logger   *zap.Logger
	settings Settings

	document  *view.Document
	presenter *notify.Presenter
	indicator *notify.Indicator
	client    *realtime.Client
	api       *restapi.Client
}

func NewApp(logger *zap.Logger, settings Settings) *App {
	document := view.NewDocument()
	mountPageSkeleton(document)

	presenter := notify.NewPresenter(logger, document, 0)
	indicator := notify.NewIndicator(logger, document)

	options := realtime.DefaultOptions(settings.ServerURL)
	options.Token = settings.Token

	client := realtime.NewClient(logger, options, presenter, indicator)
	api := restapi.NewClient(logger, settings.APIBase, settings.CSRFToken)

	return &App{
		logger:    logger,
		settings:  settings,
		document:  document,
		presenter: presenter,
		indicator: indicator,
		client:    client,
		api:       api,
	}
}

func (a *App) run(ctx context.Context) error {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	ui := newTerminalUI()
	a.presenter.Subscribe(ui.renderToast)
	a.indicator.Subscribe(ui.renderStatus)

	reload := func() {
		a.logger.Info("page reload requested")
	}

	baseRouter := feature.NewBaseRouter(a.logger, a.client, a.presenter, a.settings.Page)
	adminDirectory := feature.NewAdminDirectory(a.logger, a.client, a.presenter, a.document, a.api, reload)
	dashboard := feature.NewDashboard(a.logger, a.client, a.presenter, a.document, a.api)

	baseRouter.Initialize()
	adminDirectory.Initialize()
	dashboard.Initialize()

	a.logger.Info("connecting to push channel",
		zap.String("url", a.settings.ServerURL))

	if err := a.client.Initialize(notifyCtx); err != nil {
		return err
	}

	<-notifyCtx.Done()

	a.logger.Info("shutting down")

	return a.client.Close()
}

// mountPageSkeleton provides the element-id contract a hosting page
// would normally carry in its markup.
func mountPageSkeleton(document *view.Document) {
	document.Append("", view.NewNode("div").WithID(feature.ContentContainerID))
	document.Append("", view.NewNode("div").WithID(feature.DashboardID).WithChildren(
		view.NewNode("div").WithID(feature.ActiveUsersID),
		view.NewNode("div").WithID(feature.UserActivityID),
	))
	document.Append("", view.NewNode("tbody").WithID(feature.AdminTableBodyID))
	document.Append("", view.NewNode("tbody").WithID(feature.AuditLogsID))
	document.Append("", view.NewNode("div").WithID(feature.AlertsContainerID))
	for _, id := range []string{
		"totalOfficesCounter",
		"activeAdminsCounter",
		"unassignedOfficesCounter",
		"unassignedAdminsCounter",
	} {
		document.Append("", view.NewNode("span").WithID(id).WithText("0"))
	}
}

func newRootCommand(logger *zap.Logger, settings Settings) *cobra.Command {
	root := &cobra.Command{
		Use:           "console",
		Short:         "Realtime administrative console client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := NewApp(logger, settings)

			return app.run(cmd.Context())
		},
	}

	flags := root.Flags()
	flags.StringVar(&settings.ServerURL, "server", settings.ServerURL, "push channel websocket URL")
	flags.StringVar(&settings.APIBase, "api", settings.APIBase, "REST API base URL")
	flags.StringVar(&settings.Token, "token", settings.Token, "session token")
	flags.StringVar(&settings.Page, "page", settings.Page, "current page path")

	return root
}

func main() {
	_ = godotenv.Load()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(err)
	}

	logger, err := buildZapLogger(settings.LogEncoding)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	root := newRootCommand(logger, settings)

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error("console exited with error", zap.Error(err))
		os.Exit(1)
	}
}
