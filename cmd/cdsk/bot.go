package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cartdesk/cartdesk/internal/bot"
	"github.com/cartdesk/cartdesk/internal/bot/discord"
	"github.com/cartdesk/cartdesk/internal/bot/slack"
	"github.com/cartdesk/cartdesk/internal/catalog"
	"github.com/cartdesk/cartdesk/internal/intake"
	"github.com/cartdesk/cartdesk/internal/request"
	"github.com/cartdesk/cartdesk/internal/users"
)

func newBotCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the CartDesk bot",
		Long: `Connects to Discord or Slack (per config), answers commands, walks
users through new requests and runs the background jobs (session sweep,
SLA alerts, auto-archive). Blocks until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CartDesk config file")
	return cmd
}

func runBot(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var adapter bot.Adapter
	switch cfg.Platform {
	case "discord":
		adapter, err = discord.New(discord.AdapterOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
	case "slack":
		adapter, err = slack.New(slack.AdapterOpts{
			AppToken:  cfg.Slack.AppToken,
			BotToken:  cfg.Slack.BotToken,
			ChannelID: cfg.Slack.ChannelID,
		})
	default:
		return fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
	if err != nil {
		return err
	}

	store := request.NewStore(gormDB)
	sessions := intake.NewManager(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
	controller, err := intake.NewController(intake.ControllerOpts{
		Sessions: sessions,
		Catalog:  catalog.New(gormDB),
		Creator:  store,
	})
	if err != nil {
		return err
	}

	notifier := bot.NewNotifier(adapter, cfg.AdminChannelID())
	router, err := bot.NewRouter(bot.RouterOpts{
		Users:    users.New(gormDB),
		Intake:   controller,
		Store:    store,
		Notifier: notifier,
		Adapter:  adapter,
		Out:      out,
	})
	if err != nil {
		return err
	}

	daemon, err := bot.NewDaemon(bot.DaemonOpts{
		Adapter:     adapter,
		Router:      router,
		Sessions:    sessions,
		Store:       store,
		Notifier:    notifier,
		SweepCron:   cfg.Session.SweepCron,
		SLACron:     cfg.Jobs.SLACron,
		SLAAge:      time.Duration(cfg.Jobs.SLAHours) * time.Hour,
		ArchiveCron: cfg.Jobs.ArchiveCron,
		ArchiveAge:  time.Duration(cfg.Jobs.ArchiveAfterDays) * 24 * time.Hour,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	fmt.Fprintf(out, "CartDesk bot starting on %s\n", cfg.Platform)
	if err := daemon.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
