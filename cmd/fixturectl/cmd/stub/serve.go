package stub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/internal/config"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/internal/idpstub"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/log"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	addr          string
	tokenLifetime time.Duration
)

// StubCmd is the parent command for the offline stub
var StubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run in-memory stand-ins for the upstream services",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the identity, service auth and case data stub",
	Long: `Serves the token, user details, service lease and case data endpoints from
memory on a single address. Every configured user is registered with the stub,
so pointing idam_url, service_auth_url and case_data_url at --addr gives a fully
offline setup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		logger := log.FromContext(cmd.Context()).With().Str("component", "idpstub").Logger()

		opts := idpstub.Options{
			ClientID:      cfg.Settings.OAuth.ClientID,
			ClientSecret:  cfg.Settings.OAuth.ClientSecret,
			TokenLifetime: tokenLifetime,
			Logger:        logger,
		}
		if cfg.Settings.Microservice != "" {
			opts.Microservices = []string{cfg.Settings.Microservice}
		}
		s, err := idpstub.New(opts)
		if err != nil {
			return err
		}
		for _, alias := range cfg.Settings.UserAliases() {
			u := cfg.Settings.Users[alias]
			registered := s.AddUser(idpstub.User{Email: u.Email, Password: u.Password, Forename: alias})
			logger.Debug().Str(log.FieldEmail, u.Email).Int64(log.FieldUserID, registered.ID).Msg("registered stub user")
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			pterm.Info.Printf("Stub listening on %s with %d user(s)\n", addr, len(cfg.Settings.Users))
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("stub server error: %w", err)

		case sig := <-shutdown:
			logger.Info().Str("signal", sig.String()).Msg("shutting down stub")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			pterm.Success.Println("Stub stopped")
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "localhost:5000", "Address to listen on")
	serveCmd.Flags().DurationVar(&tokenLifetime, "token-lifetime", 8*time.Hour, "Lifetime of issued tokens")
	StubCmd.AddCommand(serveCmd)
}
