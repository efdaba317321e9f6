package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/titledex/titledex/internal/httpapi"
	"github.com/titledex/titledex/internal/logging"
	"github.com/titledex/titledex/internal/resolve"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve resolve queries over HTTP",
		Run:   runServe,
	}

	cmd.Flags().StringP("addr", "a", ":8410", "Listen address")
	cmd.Flags().Bool("strict", false, "Fail requests on any attribute archive error instead of omitting")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	strict, _ := cmd.Flags().GetBool("strict")
	log := logging.Named("serve")

	set, err := openCurrent()
	if err != nil {
		exitErr("open archives", err)
	}
	defer set.Close()

	r := resolve.New(set, resolve.Options{Strict: strict})
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpapi.New(r).Router(),
		ReadTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Str("build", set.BuildID).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitErr("serve", err)
	}
}
