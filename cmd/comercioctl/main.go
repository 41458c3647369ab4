// Command comercioctl is the operator CLI for the comercio payments and
// notifications API. Reads and writes go through the client cache so
// repeated lookups within one invocation are served locally.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/comercio-backend/internal/clientsync"
	"github.com/angelmondragon/comercio-backend/pkg/apiclient"
	"github.com/angelmondragon/comercio-backend/pkg/config"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globalOptions struct {
	baseURL string
	token   string
	timeout time.Duration
	asJSON  bool
	verbose bool
}

// app is built once per invocation in PersistentPreRunE.
type app struct {
	opts          *globalOptions
	payments      *clientsync.PaymentSync
	notifications *clientsync.NotificationSync
}

// newRootCmd wires the command tree. loadConfig is swapped in tests.
func newRootCmd(loadConfig func() (*config.ClientConfig, error)) *cobra.Command {
	if loadConfig == nil {
		loadConfig = config.LoadClient
	}
	opts := &globalOptions{}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:           "comercioctl",
		Short:         "Operate payments and notifications through the comercio API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, loadConfig)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", "", "API base URL (overrides COMERCIO_CLIENT_BASE_URL)")
	flags.StringVar(&opts.token, "token", "", "bearer token (overrides COMERCIO_CLIENT_TOKEN)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "HTTP timeout (overrides COMERCIO_CLIENT_TIMEOUT)")
	flags.BoolVar(&opts.asJSON, "json", false, "print raw JSON instead of tables")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log cache and mutation activity")

	root.AddCommand(newPaymentsCmd(a), newNotificationsCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command, loadConfig func() (*config.ClientConfig, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if a.opts.baseURL != "" {
		cfg.BaseURL = a.opts.baseURL
	}
	if a.opts.token != "" {
		cfg.Token = a.opts.token
	}
	if a.opts.timeout > 0 {
		cfg.Timeout = a.opts.timeout
	}

	client, err := apiclient.NewFromConfig(*cfg)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	var logg *logger.Logger
	if a.opts.verbose {
		logg = logger.New(logger.Options{ServiceName: "comercioctl", Level: "debug", Output: errOut})
	}
	reporter := clientsync.ReporterFunc(func(_ context.Context, message string) {
		fmt.Fprintln(errOut, message)
	})

	syncer, err := clientsync.NewSyncer(clientsync.NewCache(), reporter, logg)
	if err != nil {
		return err
	}
	if a.payments, err = clientsync.NewPaymentSync(client, syncer); err != nil {
		return err
	}
	if a.notifications, err = clientsync.NewNotificationSync(client, syncer); err != nil {
		return err
	}
	return nil
}
